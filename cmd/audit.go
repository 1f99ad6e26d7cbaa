package cmd

import (
	"fmt"
	"strings"

	"github.com/triagekit/resume-triage/internal/audit"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Print the audit log of past triage decisions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := cmd.Flags().GetString("audit-log")
		if err != nil {
			return err
		}
		if strings.TrimSpace(path) == "" {
			path = viper.GetString("audit-log")
		}

		records, err := audit.NewLog(path, "").Records()
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("audit log is empty")
			return nil
		}

		for _, rec := range records {
			fmt.Printf("%s  %-11s  %-20s  %s\n", rec.Timestamp, rec.Action, rec.Destination, rec.File)
			if rec.Reason != "" {
				fmt.Printf("    %s\n", rec.Reason)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().String("audit-log", "", "path to the audit log file")
}
