package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	appanalyses "github.com/bryanwahyu/policy-analyzer/internal/application/analyses"
)

func analyzeCmd(configPath *string) *cobra.Command {
	var file, state, policyType, loss string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one policy PDF against a loss and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			pdf, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read policy: %w", err)
			}
			a, err := newApp(cmd.Context(), *configPath, nil)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.svc.Analyze(cmd.Context(), appanalyses.AnalyzeCommand{
				Filename:        filepath.Base(file),
				PDF:             pdf,
				State:           state,
				PolicyType:      policyType,
				LossDescription: loss,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Policy PDF path")
	cmd.Flags().StringVar(&state, "state", "", "Jurisdiction, e.g. FL")
	cmd.Flags().StringVar(&policyType, "policy-type", "", "Policy type, e.g. HO-3")
	cmd.Flags().StringVar(&loss, "loss", "", "Description of the loss")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func underpaymentCmd(configPath *string) *cobra.Command {
	var id, estimateFile string

	cmd := &cobra.Command{
		Use:   "underpayment",
		Short: "Check a carrier estimate against a stored analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			estimate, err := readEstimate(cmd.InOrStdin(), estimateFile)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), *configPath, nil)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.svc.CheckUnderpayment(cmd.Context(), appanalyses.UnderpaymentCommand{
				ID:           id,
				EstimateText: estimate,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Analysis id")
	cmd.Flags().StringVar(&estimateFile, "estimate-file", "-", "Estimate text file, - for stdin")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func readEstimate(stdin io.Reader, path string) (string, error) {
	if path == "" {
		return "", errors.New("--estimate-file is required")
	}
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read estimate: %w", err)
	}
	return string(b), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
