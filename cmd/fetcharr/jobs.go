package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect scheduled jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled jobs and their run state",
	RunE:  runJobsList,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsListCmd)
}

func runJobsList(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	jobs, err := client.ListJobs()
	if err != nil {
		return fmt.Errorf("list jobs failed: %w", err)
	}

	if jsonOutput {
		printJSON(jobs)
		return nil
	}

	printJobsHuman(jobs)
	return nil
}

func printJobsHuman(jobs *ListJobsResponse) {
	if len(jobs.Items) == 0 {
		fmt.Println("No scheduled jobs")
		return
	}

	fmt.Printf("Jobs (%d):\n\n", len(jobs.Items))
	fmt.Printf("  %-16s %-14s %-8s %-18s %s\n", "NAME", "SCHEDULE", "ENABLED", "LAST RUN", "NEXT RUN")
	fmt.Println("  " + strings.Repeat("-", 76))

	for _, j := range jobs.Items {
		fmt.Printf("  %-16s %-14s %-8t %-18s %s\n",
			j.Name, j.Schedule, j.Enabled, fmtRunTime(j.LastRun), fmtRunTime(j.NextRun))
		if j.LastError != nil {
			fmt.Printf("    last error (%d consecutive): %s\n", j.ConsecutiveFailures, *j.LastError)
		}
	}
}

func fmtRunTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
