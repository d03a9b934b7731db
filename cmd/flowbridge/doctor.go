package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"flowbridge/internal/config"
	"flowbridge/internal/errors"
	"flowbridge/internal/flow"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor [file]",
	Short: "Diagnose flowbridge setup",
	Long: `Check the configuration and the Flow binary. With a file, also check that a
.flowconfig root is found for it and that Flow can be run there.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// DoctorCheck is the outcome of one diagnostic check
type DoctorCheck struct {
	Name           string             `json:"name" yaml:"name"`
	Status         string             `json:"status" yaml:"status"`
	Message        string             `json:"message" yaml:"message"`
	SuggestedFixes []errors.FixAction `json:"suggestedFixes,omitempty" yaml:"suggestedFixes,omitempty"`
}

// DoctorResponseCLI is the output of `doctor`
type DoctorResponseCLI struct {
	Healthy bool          `json:"healthy" yaml:"healthy"`
	Checks  []DoctorCheck `json:"checks" yaml:"checks"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, cfgErr := loadConfig()
	if cfgErr != nil {
		cfg = nil
	}

	file := ""
	if len(args) == 1 {
		file = absPath(args[0])
	}
	resp := diagnose(cfg, cfgErr, file)

	if err := printResult(cmd, resp); err != nil {
		return err
	}
	if !resp.Healthy {
		return &exitError{code: 1}
	}
	return nil
}

// diagnose runs every check that its inputs allow. A nil cfg means loading
// failed with cfgErr.
func diagnose(cfg *config.Config, cfgErr error, file string) *DoctorResponseCLI {
	resp := &DoctorResponseCLI{Healthy: true}
	add := func(c DoctorCheck) {
		if c.Status == "fail" {
			resp.Healthy = false
		}
		resp.Checks = append(resp.Checks, c)
	}

	if cfg == nil {
		add(DoctorCheck{Name: "config", Status: "fail", Message: cfgErr.Error()})
		return resp
	}
	if err := cfg.Validate(); err != nil {
		add(DoctorCheck{Name: "config", Status: "fail", Message: err.Error()})
		return resp
	}
	source := cfg.Source
	if source == "" {
		source = "defaults (no config file)"
	}
	add(DoctorCheck{Name: "config", Status: "pass", Message: source})

	sup, err := flow.NewSupervisor(cfg, nil)
	if err != nil {
		add(DoctorCheck{Name: "supervisor", Status: "fail", Message: err.Error()})
		return resp
	}
	defer sup.Shutdown()
	resolver := sup.Resolver()

	if binary, ok := resolver.LocateBinary(); ok {
		add(DoctorCheck{Name: "binary", Status: "pass", Message: binary})
	} else {
		add(DoctorCheck{
			Name:           "binary",
			Status:         "fail",
			Message:        "flow binary not found",
			SuggestedFixes: errors.GetSuggestedFixes(errors.BinaryNotFound),
		})
	}

	if file == "" {
		return resp
	}

	root, ok := resolver.FindConfigRoot(file)
	if !ok {
		add(DoctorCheck{
			Name:           "root",
			Status:         "fail",
			Message:        fmt.Sprintf("no %s found above %s", cfg.Flow.ConfigFileName, file),
			SuggestedFixes: errors.GetSuggestedFixes(errors.NoConfigRoot),
		})
		return resp
	}
	add(DoctorCheck{Name: "root", Status: "pass", Message: root})

	opts, err := sup.Lookup(file)
	if err != nil {
		var be *errors.BridgeError
		check := DoctorCheck{Name: "runnable", Status: "fail", Message: err.Error()}
		if errors.As(err, &be) {
			check.Message = be.Message
			check.SuggestedFixes = be.SuggestedFixes
		}
		add(check)
		return resp
	}
	add(DoctorCheck{
		Name:    "runnable",
		Status:  "pass",
		Message: fmt.Sprintf("%s %s (in %s)", opts.Binary, cfg.Flow.ServerArgs[0], opts.Dir),
	})
	return resp
}
