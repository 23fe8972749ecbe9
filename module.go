package blindkey

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.viam.com/rdk/components/board"
	genericcomponent "go.viam.com/rdk/components/generic"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	generic "go.viam.com/rdk/services/generic"
)

var Controller = resource.NewModel("blindkey", "setup-automation", "controller")

func init() {
	resource.RegisterService(generic.API, Controller,
		resource.Registration[resource.Resource, *Config]{
			Constructor: newSetupController,
		},
	)
}

type Config struct {
	Board        string `json:"board"`
	PrimaryPin   string `json:"primary_pin"`             // execution interlock, wire to GND = safe
	SecondaryPin string `json:"secondary_pin"`           // mode interlock, removed = install
	ArmPin       string `json:"arm_pin"`                 // momentary button to GND
	TouchPin     string `json:"touch_pin,omitempty"`     // adjustment touch wire (default: primary_pin)
	LEDPin       string `json:"led_pin,omitempty"`

	Display        string `json:"display,omitempty"` // generic component accepting "show"
	LCD            bool   `json:"lcd,omitempty"`     // on-board I2C LCD backpack
	LCDBus         string `json:"lcd_bus,omitempty"`
	LCDAddress     int    `json:"lcd_address,omitempty"`
	RequireDisplay bool   `json:"require_display,omitempty"`

	Keyboard  string `json:"keyboard,omitempty"` // generic component accepting "report"
	HIDDevice string `json:"hid_device,omitempty"`
	DryRun    bool   `json:"dry_run,omitempty"`

	AdminPassword string `json:"admin_password"`

	ArmHoldMS         int `json:"arm_hold_ms,omitempty"`
	AdjustInitialMS   int `json:"adjust_initial_ms,omitempty"`
	AdjustExtensionMS int `json:"adjust_extension_ms,omitempty"`
	KeyHoldMS         int `json:"key_hold_ms,omitempty"`
	KeyDelayMS        int `json:"key_delay_ms,omitempty"`

	MaxSweeps         int `json:"max_sweeps,omitempty"`
	PositionsPerSweep int `json:"positions_per_sweep,omitempty"`
	ExtremityMoves    int `json:"extremity_moves,omitempty"`

	CredentialResetScript string `json:"credential_reset_script,omitempty"`
	InstallScript         string `json:"install_script,omitempty"`
}

func (cfg *Config) Validate(path string) ([]string, []string, error) {
	if cfg.Board == "" {
		return nil, nil, fmt.Errorf("%s: board is required", path)
	}
	if cfg.PrimaryPin == "" {
		return nil, nil, fmt.Errorf("%s: primary_pin is required", path)
	}
	if cfg.SecondaryPin == "" {
		return nil, nil, fmt.Errorf("%s: secondary_pin is required", path)
	}
	if cfg.ArmPin == "" {
		return nil, nil, fmt.Errorf("%s: arm_pin is required", path)
	}
	if cfg.AdminPassword == "" {
		return nil, nil, fmt.Errorf("%s: admin_password is required", path)
	}
	if cfg.Display != "" && cfg.LCD {
		return nil, nil, fmt.Errorf("%s: display and lcd are mutually exclusive", path)
	}
	if cfg.LCDAddress < 0 || cfg.LCDAddress > 0x7F {
		return nil, nil, fmt.Errorf("%s: lcd_address 0x%X is not a 7-bit address", path, cfg.LCDAddress)
	}
	for name, v := range map[string]int{
		"arm_hold_ms":         cfg.ArmHoldMS,
		"adjust_initial_ms":   cfg.AdjustInitialMS,
		"adjust_extension_ms": cfg.AdjustExtensionMS,
		"key_hold_ms":         cfg.KeyHoldMS,
		"key_delay_ms":        cfg.KeyDelayMS,
		"max_sweeps":          cfg.MaxSweeps,
		"positions_per_sweep": cfg.PositionsPerSweep,
		"extremity_moves":     cfg.ExtremityMoves,
	} {
		if v < 0 {
			return nil, nil, fmt.Errorf("%s: %s must not be negative", path, name)
		}
	}

	deps := []string{cfg.Board}
	if cfg.Display != "" {
		deps = append(deps, cfg.Display)
	}
	if cfg.Keyboard != "" && !cfg.DryRun {
		deps = append(deps, cfg.Keyboard)
	}
	return deps, nil, nil
}

func millis(n int, def time.Duration) time.Duration {
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Millisecond
}

func (cfg *Config) sweepConfig() SweepConfig {
	return SweepConfig{
		MaxSweeps:         cfg.MaxSweeps,
		PositionsPerSweep: cfg.PositionsPerSweep,
		ExtremityMoves:    cfg.ExtremityMoves,
	}.withDefaults()
}

func (cfg *Config) lcdAddress() uint16 {
	if cfg.LCDAddress == 0 {
		return DefaultLCDAddress
	}
	return uint16(cfg.LCDAddress)
}

// loadScripts resolves the script for each payload mode and validates it.
func (cfg *Config) loadScripts() (map[Mode]*Script, error) {
	vars := cfg.scriptVars()
	out := map[Mode]*Script{}
	for mode, override := range map[Mode]string{
		ModeCredentialReset: cfg.CredentialResetScript,
		ModeInstall:         cfg.InstallScript,
	} {
		var (
			s   *Script
			err error
		)
		if override != "" {
			s, err = LoadScriptFile(override)
		} else {
			s, err = BuiltinScript(mode)
		}
		if err != nil {
			return nil, fmt.Errorf("loading %s script: %w", mode, err)
		}
		if err := s.Validate(vars); err != nil {
			return nil, fmt.Errorf("validating %s script: %w", mode, err)
		}
		out[mode] = s
	}
	return out, nil
}

func (cfg *Config) scriptVars() map[string]string {
	return map[string]string{"admin_password": cfg.AdminPassword}
}

// hardware bundles the collaborators the lifecycle drives. Display and
// keyboard are opened during boot so their failures become numbered faults.
type hardware struct {
	primary   Conductor
	secondary Conductor
	arm       Conductor
	touch     Conductor
	indicator Indicator

	openDisplay func(ctx context.Context) (StatusDisplay, error)
	openSink    func(ctx context.Context) (reportSink, error)
}

func hardwareFromDependencies(deps resource.Dependencies, conf *Config, clk Clock, logger logging.Logger) (hardware, error) {
	var hw hardware

	b, err := board.FromDependencies(deps, conf.Board)
	if err != nil {
		return hw, fmt.Errorf("getting board: %w", err)
	}
	if hw.primary, err = newPinConductor(b, conf.PrimaryPin); err != nil {
		return hw, err
	}
	if hw.secondary, err = newPinConductor(b, conf.SecondaryPin); err != nil {
		return hw, err
	}
	if hw.arm, err = newPinConductor(b, conf.ArmPin); err != nil {
		return hw, err
	}
	hw.touch = hw.primary
	if conf.TouchPin != "" && conf.TouchPin != conf.PrimaryPin {
		if hw.touch, err = newPinConductor(b, conf.TouchPin); err != nil {
			return hw, err
		}
	}
	hw.indicator = nopIndicator{}
	if conf.LEDPin != "" {
		if hw.indicator, err = newPinIndicator(b, conf.LEDPin); err != nil {
			return hw, err
		}
	}

	switch {
	case conf.Display != "":
		res, err := genericcomponent.FromDependencies(deps, conf.Display)
		if err != nil {
			return hw, fmt.Errorf("getting display: %w", err)
		}
		hw.openDisplay = func(context.Context) (StatusDisplay, error) {
			return &componentDisplay{res: res}, nil
		}
	case conf.LCD:
		hw.openDisplay = func(context.Context) (StatusDisplay, error) {
			return openLCD(conf.LCDBus, conf.lcdAddress(), clk)
		}
	}

	switch {
	case conf.DryRun:
		hw.openSink = func(context.Context) (reportSink, error) {
			return &dryRunSink{logger: logger}, nil
		}
	case conf.Keyboard != "":
		res, err := genericcomponent.FromDependencies(deps, conf.Keyboard)
		if err != nil {
			return hw, fmt.Errorf("getting keyboard: %w", err)
		}
		hw.openSink = func(context.Context) (reportSink, error) {
			return &componentSink{res: res}, nil
		}
	default:
		hw.openSink = func(context.Context) (reportSink, error) {
			return openGadgetSink(conf.HIDDevice)
		}
	}
	return hw, nil
}

type setupController struct {
	resource.AlwaysRebuild

	name    resource.Name
	logger  logging.Logger
	cfg     *Config
	hw      hardware
	clk     Clock
	scripts map[Mode]*Script

	rc      *runContext
	emitter *Emitter
	seq     *Sequencer

	mu         sync.Mutex
	lastReport *RunReport

	cancelCtx  context.Context
	cancelFunc func()
	done       chan struct{}
}

func newSetupController(ctx context.Context, deps resource.Dependencies, rawConf resource.Config, logger logging.Logger) (resource.Resource, error) {
	conf, err := resource.NativeConfig[*Config](rawConf)
	if err != nil {
		return nil, err
	}

	return NewController(ctx, deps, rawConf.ResourceName(), conf, logger)
}

// NewController builds the controller and starts its lifecycle: boot checks,
// interlock gate, hold-to-arm and one payload run.
func NewController(ctx context.Context, deps resource.Dependencies, name resource.Name, conf *Config, logger logging.Logger) (resource.Resource, error) {
	clk := newRealClock()
	hw, err := hardwareFromDependencies(deps, conf, clk, logger)
	if err != nil {
		return nil, err
	}
	c, err := newController(name, conf, hw, clk, logger)
	if err != nil {
		return nil, err
	}
	go c.run()
	return c, nil
}

func newController(name resource.Name, conf *Config, hw hardware, clk Clock, logger logging.Logger) (*setupController, error) {
	scripts, err := conf.loadScripts()
	if err != nil {
		return nil, err
	}
	if hw.touch == nil {
		hw.touch = hw.primary
	}

	cancelCtx, cancelFunc := context.WithCancel(context.Background())
	rc := newRunContext(clk, logger, newStatusSurface(nil, logger), hw.indicator)
	rc.dryRun = conf.DryRun

	return &setupController{
		name:       name,
		logger:     logger,
		cfg:        conf,
		hw:         hw,
		clk:        clk,
		scripts:    scripts,
		rc:         rc,
		cancelCtx:  cancelCtx,
		cancelFunc: cancelFunc,
		done:       make(chan struct{}),
	}, nil
}

func (c *setupController) Name() resource.Name {
	return c.name
}

func (c *setupController) run() {
	defer close(c.done)
	c.lifecycle(c.cancelCtx)
}

// lifecycle is the single control thread. It returns only on shutdown,
// after a fault has been signaled until shutdown, or after one payload run.
func (c *setupController) lifecycle(ctx context.Context) {
	rc := c.rc
	if err := c.boot(ctx); err != nil {
		c.halt(ctx, err)
		return
	}

	mode := ModeBlocked
	for mode == ModeBlocked {
		m, err := rc.awaitPrimaryOpen(ctx, c.hw.primary, c.hw.secondary)
		if err != nil {
			c.halt(ctx, err)
			return
		}
		mode = m
	}
	script := c.scripts[mode]
	rc.update(func(s *runState) { s.Mode = mode })
	rc.logger.Infof("primary safety off, mode %s", mode)
	if len(script.Ready) == 2 {
		rc.show(ctx, script.Ready[0], script.Ready[1])
		rc.clk.Sleep(500 * time.Millisecond)
	}

	if err := rc.awaitArm(ctx, c.hw.arm, millis(c.cfg.ArmHoldMS, defaultArmHold)); err != nil {
		c.halt(ctx, err)
		return
	}

	rc.show(ctx, "!! ARMED !!", "Executing...")
	rc.blink(ctx, 3, 100*time.Millisecond)
	report := c.seq.Run(ctx, script, mode)

	c.mu.Lock()
	c.lastReport = report
	c.mu.Unlock()
	rc.update(func(s *runState) {
		s.State = stateComplete
		s.CompletedAt = rc.clk.Now()
	})
	if len(script.Complete) == 2 {
		rc.show(ctx, script.Complete[0], script.Complete[1])
	}
	rc.led(ctx, true)
}

// boot brings up the display, the keyboard and checks the interlock wiring.
func (c *setupController) boot(ctx context.Context) error {
	rc := c.rc
	rc.setState(stateBooting)

	if c.hw.openDisplay != nil {
		d, err := c.hw.openDisplay(ctx)
		if err == nil {
			rc.status.display = d
			err = rc.status.Probe(ctx, "MULTI-TOOL", "Checking...")
		}
		if err != nil {
			if c.cfg.RequireDisplay {
				return faultOr(err, FaultDisplayMissing)
			}
			rc.logger.Warnf("continuing without display: %v", err)
		}
	}

	sink, err := c.hw.openSink(ctx)
	if err != nil {
		return faultOr(err, FaultKeyboardInit)
	}
	c.emitter = newEmitter(sink, c.clk, c.logger, millis(c.cfg.KeyHoldMS, defaultKeyHold), millis(c.cfg.KeyDelayMS, defaultKeyDelay))
	c.seq = newSequencer(rc, c.emitter, c.hw.touch, c.cfg.scriptVars())
	c.seq.initial = millis(c.cfg.AdjustInitialMS, defaultAdjustInitial)
	c.seq.extension = millis(c.cfg.AdjustExtensionMS, defaultAdjustExtension)
	c.seq.sweep = c.cfg.sweepConfig()

	for _, w := range []struct {
		name string
		c    Conductor
	}{
		{"primary", c.hw.primary},
		{"secondary", c.hw.secondary},
		{"arm", c.hw.arm},
	} {
		if err := checkWiring(ctx, c.clk, w.name, w.c); err != nil {
			return err
		}
	}

	if c.cfg.DryRun {
		rc.show(ctx, "** DEMO MODE **", "No keys sent!")
		rc.clk.Sleep(1500 * time.Millisecond)
	}
	rc.logger.Infof("hardware checks passed")
	return nil
}

// halt signals a fault until shutdown. Shutdown itself is not a fault.
func (c *setupController) halt(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	c.rc.signalFault(ctx, asFault(err))
}

func faultOr(err error, code FaultCode) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return newFault(code, err)
}

// GetState is the snapshot exposed by DoCommand and the run sensor.
func (c *setupController) GetState() map[string]interface{} {
	return c.rc.snapshot().toMap(c.rc.status.Available(), c.cfg.DryRun)
}

func (c *setupController) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	command, ok := cmd["command"].(string)
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'command' field")
	}

	switch command {
	case "status":
		return c.GetState(), nil
	case "script":
		return c.handleScript(cmd)
	case "report":
		return c.handleReport()
	default:
		return nil, fmt.Errorf("unknown command: %s", command)
	}
}

func (c *setupController) handleScript(cmd map[string]interface{}) (map[string]interface{}, error) {
	name, _ := cmd["mode"].(string)
	mode, err := ParseMode(name)
	if err != nil {
		return nil, err
	}
	return scriptSummary(c.scripts[mode]), nil
}

func (c *setupController) handleReport() (map[string]interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastReport == nil {
		return nil, fmt.Errorf("no payload has completed")
	}
	return c.lastReport.toMap(), nil
}

// Close stops the gate, ready and arm loops. A payload in progress cannot be
// interrupted; Close then gives up when ctx expires.
func (c *setupController) Close(ctx context.Context) error {
	c.cancelFunc()
	select {
	case <-c.done:
	case <-ctx.Done():
		if c.rc.snapshot().State == stateRunning {
			return fmt.Errorf("payload still running and cannot be interrupted: %w", ctx.Err())
		}
		return fmt.Errorf("controller loop did not stop in time: %w", ctx.Err())
	}

	var err error
	if c.emitter != nil {
		err = multierr.Append(err, c.emitter.Close())
	}
	return multierr.Append(err, c.rc.status.Close())
}
