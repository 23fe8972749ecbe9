package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"blindkey"

	"github.com/spf13/cobra"
	"go.viam.com/rdk/logging"
)

func main() {
	rootCmd := newRootCmd(os.Stdout)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "blindkey",
		Short:        "Operator tools for the blind setup-automation device",
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)
	rootCmd.AddCommand(
		scriptsCmd(),
		simulateCmd(),
		i2cscanCmd(),
	)
	return rootCmd
}

func scriptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scripts",
		Short: "List the phases of the built-in payload scripts or a script file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			if file != "" {
				s, err := blindkey.LoadScriptFile(file)
				if err != nil {
					return err
				}
				printScript(cmd.OutOrStdout(), s)
				return nil
			}
			for _, mode := range []blindkey.Mode{blindkey.ModeCredentialReset, blindkey.ModeInstall} {
				s, err := blindkey.BuiltinScript(mode)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "[%s]\n", mode)
				printScript(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
	cmd.Flags().String("file", "", "Script file to list instead of the built-ins")
	return cmd
}

func printScript(w io.Writer, s *blindkey.Script) {
	fmt.Fprintf(w, "%s (%d phases)\n", s.Name, len(s.Phases))
	for _, p := range s.Describe() {
		fmt.Fprintf(w, "  %2d. %-16s %-16s %d steps\n", p["index"], p["title"], p["detail"], p["steps"])
	}
}

func simulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a payload on a virtual clock and print the keystroke timeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			modeName, _ := cmd.Flags().GetString("mode")
			mode, err := blindkey.ParseMode(modeName)
			if err != nil {
				return err
			}
			password, _ := cmd.Flags().GetString("password")
			touchAt, _ := cmd.Flags().GetDurationSlice("touch")
			file, _ := cmd.Flags().GetString("file")

			opts := blindkey.SimulationOptions{
				Mode:    mode,
				Vars:    map[string]string{"admin_password": password},
				Touches: touchAt,
			}
			if file != "" {
				if opts.Script, err = blindkey.LoadScriptFile(file); err != nil {
					return err
				}
			}

			result, err := blindkey.Simulate(opts, logging.NewLogger("blindkey-simulate"))
			if err != nil {
				return err
			}
			printTimeline(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().String("mode", "credential_reset", "Payload mode: credential_reset or install")
	cmd.Flags().String("password", "demo", "Value for ${admin_password}")
	cmd.Flags().DurationSlice("touch", nil, "Offsets from run start at which the touch wire is tapped (e.g. 12s,14s)")
	cmd.Flags().String("file", "", "Script file to run instead of the built-in one")
	return cmd
}

// printTimeline collapses consecutive identical chords into one line.
func printTimeline(w io.Writer, result *blindkey.SimulationResult) {
	keys := result.Keys
	for i := 0; i < len(keys); {
		j := i + 1
		for j < len(keys) && keys[j].Chord == keys[i].Chord {
			j++
		}
		if n := j - i; n > 1 {
			fmt.Fprintf(w, "%10s  %s x%d\n", keys[i].At.Truncate(time.Millisecond), keys[i].Chord, n)
		} else {
			fmt.Fprintf(w, "%10s  %s\n", keys[i].At.Truncate(time.Millisecond), keys[i].Chord)
		}
		i = j
	}
	r := result.Report
	fmt.Fprintf(w, "run %s: %s, %d phases, %d keystrokes\n", r.RunID, r.Script, r.PhasesRun, len(keys))
	fmt.Fprintf(w, "extra steps: %v\n", r.ExtraSteps)
	fmt.Fprintf(w, "delete attempts: %d\n", r.DeleteAttempts)
	fmt.Fprintf(w, "virtual time: %s\n", r.Elapsed)
}

func i2cscanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "i2cscan",
		Short: "Scan an I2C bus and flag LCD backpack addresses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			busName, _ := cmd.Flags().GetString("bus")
			bus, err := blindkey.OpenI2CBus(busName)
			if err != nil {
				return err
			}
			defer bus.Close()

			found := blindkey.ScanBus(bus, blindkey.FirstScanAddress, blindkey.LastScanAddress)
			w := cmd.OutOrStdout()
			if len(found) == 0 {
				fmt.Fprintln(w, "no devices found, check SDA/SCL wiring")
				return nil
			}
			for _, addr := range found {
				if blindkey.IsLCDBackpack(addr) {
					fmt.Fprintf(w, "0x%02X  LCD backpack\n", addr)
				} else {
					fmt.Fprintf(w, "0x%02X\n", addr)
				}
			}
			fmt.Fprintf(w, "%d device(s)\n", len(found))
			return nil
		},
	}
	cmd.Flags().String("bus", "", "I2C bus name (default: first bus)")
	return cmd
}
