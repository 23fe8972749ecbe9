package blindkey

import (
	"context"
	"fmt"
	"sync"

	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
)

var RunSensor = resource.NewModel("blindkey", "setup-automation", "run-sensor")

func init() {
	resource.RegisterComponent(sensor.API, RunSensor,
		resource.Registration[sensor.Sensor, *RunSensorConfig]{
			Constructor: newRunSensor,
		},
	)
}

type RunSensorConfig struct {
	Controller string `json:"controller"`
}

func (cfg *RunSensorConfig) Validate(path string) ([]string, []string, error) {
	if cfg.Controller == "" {
		return nil, nil, fmt.Errorf("%s: controller is required", path)
	}
	// Full resource name so the controller resolves as a generic service
	dep := resource.NewName(resource.APINamespaceRDK.WithServiceType("generic"), cfg.Controller)
	return []string{dep.String()}, nil, nil
}

type stateProvider interface {
	GetState() map[string]interface{}
}

// runSensor exposes the controller snapshot as sensor readings so data
// capture can record the lifecycle of a run. It syncs every transition once
// and every reading while a run is live, so an idle device uploads nothing.
type runSensor struct {
	resource.AlwaysRebuild

	name       resource.Name
	logger     logging.Logger
	controller stateProvider

	mu          sync.Mutex
	lastState   string
	transitions int
}

func newRunSensor(ctx context.Context, deps resource.Dependencies, rawConf resource.Config, logger logging.Logger) (sensor.Sensor, error) {
	conf, err := resource.NativeConfig[*RunSensorConfig](rawConf)
	if err != nil {
		return nil, err
	}

	controllerName := resource.NewName(resource.APINamespaceRDK.WithServiceType("generic"), conf.Controller)
	ctrl, ok := deps[controllerName]
	if !ok {
		return nil, fmt.Errorf("controller %q not found in dependencies", conf.Controller)
	}

	provider, ok := ctrl.(stateProvider)
	if !ok {
		return nil, fmt.Errorf("controller %q does not implement GetState", conf.Controller)
	}

	initial, _ := provider.GetState()["state"].(string)
	return &runSensor{
		name:       rawConf.ResourceName(),
		logger:     logger,
		controller: provider,
		lastState:  initial,
	}, nil
}

func (s *runSensor) Name() resource.Name {
	return s.name
}

// Readings is the controller state plus the transition bookkeeping.
// should_sync is true on the first reading after a state change and on every
// reading while arming or running.
func (s *runSensor) Readings(ctx context.Context, extra map[string]interface{}) (map[string]interface{}, error) {
	state := s.controller.GetState()
	current, _ := state["state"].(string)

	s.mu.Lock()
	changed := current != s.lastState
	if changed {
		s.logger.Debugf("run state %s -> %s", s.lastState, current)
		s.lastState = current
		s.transitions++
	}
	transitions := s.transitions
	s.mu.Unlock()

	live := current == string(stateArming) || current == string(stateRunning)
	state["state_changed"] = changed
	state["transitions"] = transitions
	state["should_sync"] = changed || live
	return state, nil
}

func (s *runSensor) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	return nil, fmt.Errorf("DoCommand not supported on run-sensor")
}

func (s *runSensor) Close(context.Context) error {
	return nil
}
