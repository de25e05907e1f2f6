package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stimguard/stimguard/internal/kernel"
	"github.com/stimguard/stimguard/internal/limits"
	"github.com/stimguard/stimguard/internal/model"
)

var (
	checkRequest string
	checkLimits  string
	checkFormat  string
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkRequest, "request", "", "Glob pattern for actuation request JSON files (required)")
	checkCmd.Flags().StringVar(&checkLimits, "limits", "", "Path to limits YAML (optional)")
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format (text|json)")
	checkCmd.MarkFlagRequired("request")
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate actuation request files against the safety envelope",
	Long: "Loads actuation request JSON files matching a glob pattern, evaluates each\n" +
		"through a fresh kernel, and reports the decision per request.\n\n" +
		"Exit code 0 if every request is ALLOW, 1 if any is REJECT.\n" +
		"Use in bench setups to validate stimulation programs before deployment.",
	RunE: runCheck,
}

// checkOutcome is one row of check output.
type checkOutcome struct {
	File     string                  `json:"file"`
	Decision model.Decision          `json:"decision"`
	Result   model.SafetyCheckResult `json:"result"`
	Hash     string                  `json:"record_hash"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	matches, err := filepath.Glob(checkRequest)
	if err != nil {
		return fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("no request files match pattern: %s", checkRequest)
	}

	cfg, hash, err := limits.LoadConfigWithHash(checkLimits)
	if err != nil {
		return err
	}
	k := kernel.New(cfg.Registry(hash))

	var outcomes []checkOutcome
	rejected := false
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		var req model.ActuationRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("%s: invalid request JSON: %w", path, err)
		}

		outcome, err := k.Process(req)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if outcome.Decision != model.Allow {
			rejected = true
		}
		outcomes = append(outcomes, checkOutcome{
			File:     path,
			Decision: outcome.Decision,
			Result:   outcome.Result,
			Hash:     outcome.Record.Hash,
		})
	}

	// The per-invocation log still gets chain-checked before reporting.
	if v := k.VerifyLog(); !v.OK {
		return fmt.Errorf("decision log failed self-verification at index %d: %s", v.Index, v.Reason)
	}

	switch checkFormat {
	case "json":
		out, err := json.MarshalIndent(outcomes, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	default:
		for _, o := range outcomes {
			fmt.Printf("%-8s %-20s %s\n", o.Decision, o.Result.Status, o.File)
			if o.Result.Detail != "" && o.Decision != model.Allow {
				fmt.Printf("         %s\n", o.Result.Detail)
			}
		}
	}

	if rejected {
		os.Exit(1)
	}
	return nil
}
