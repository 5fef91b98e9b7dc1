package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"greenscreen/internal/component"
	"greenscreen/internal/workflow"
)

var (
	runWorkflowPath string
	runParams       []string
	runParamsFile   string
	runQuiet        bool
)

// runCmd executes one workflow definition end to end.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a workflow definition",
	Long: `Loads a workflow definition (JSON or YAML) and runs it to completion,
printing the execution report as JSON on stdout.

Initial parameters come from --param flags and optionally a parameter
file; flags win on conflict.

Example:
  greenscreen run --workflow escrow.yaml \
    --param host=127.0.0.1 --param port=5250 \
    --param user_id=QUSER --param password=QPASS123 \
    --param loan_number=1000001`,
	RunE: runWorkflow,
}

func init() {
	runCmd.Flags().StringVarP(&runWorkflowPath, "workflow", "w", "", "workflow definition file (required)")
	runCmd.Flags().StringArrayVarP(&runParams, "param", "p", nil, "initial parameter as key=value (repeatable)")
	runCmd.Flags().StringVar(&runParamsFile, "params-file", "", "YAML or JSON file of initial parameters")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "suppress progress output on stderr")
	_ = runCmd.MarkFlagRequired("workflow")
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	def, err := workflow.Load(runWorkflowPath)
	if err != nil {
		return err
	}
	params, err := gatherParams()
	if err != nil {
		return err
	}

	o := workflow.New(workflow.DefaultRegistry())
	if !runQuiet {
		o.OnProgress(func(p workflow.Progress) {
			line := fmt.Sprintf("%-10s %s", p.State, p.StepName)
			if p.MaxAttempts > 1 {
				line += fmt.Sprintf(" (attempt %d/%d)", p.Attempt, p.MaxAttempts)
			}
			if p.Message != "" {
				line += ": " + p.Message
			}
			fmt.Fprintln(os.Stderr, line)
		})
	}

	out, err := o.Run(cmd.Context(), def, params)
	if err != nil {
		return err
	}
	report, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(report))

	if out.FinalStatus != component.StatusSuccess {
		return fmt.Errorf("workflow %s finished with status %s", out.WorkflowID, out.FinalStatus)
	}
	return nil
}

// gatherParams merges the parameter file beneath the --param flags.
func gatherParams() (map[string]string, error) {
	params := map[string]string{}

	file := runParamsFile
	if file == "" {
		file = appConfig.Run.ParamsFile
	}
	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("parameter file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &params); err != nil {
			return nil, fmt.Errorf("parse parameter file %s: %w", file, err)
		}
	}

	for _, kv := range runParams {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed --param %q, want key=value", kv)
		}
		params[key] = value
	}
	return params, nil
}
