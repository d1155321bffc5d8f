package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Manage media requests",
}

var requestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List requests",
	RunE:  runRequestsList,
}

var requestsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one request with its items",
	Args:  cobra.ExactArgs(1),
	RunE:  runRequestsShow,
}

var requestsAddCmd = &cobra.Command{
	Use:   "add <catalog-id>",
	Short: "Submit a new request",
	Args:  cobra.ExactArgs(1),
	RunE:  runRequestsAdd,
}

var requestsApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending request",
	Args:  cobra.ExactArgs(1),
	RunE:  runRequestsApprove,
}

var requestsDenyCmd = &cobra.Command{
	Use:   "deny <id>",
	Short: "Deny a pending request",
	Args:  cobra.ExactArgs(1),
	RunE:  runRequestsDeny,
}

var requestsRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a request and clean up its backend state",
	Args:  cobra.ExactArgs(1),
	RunE:  runRequestsRemove,
}

func init() {
	rootCmd.AddCommand(requestsCmd)
	requestsCmd.AddCommand(requestsListCmd, requestsShowCmd, requestsAddCmd,
		requestsApproveCmd, requestsDenyCmd, requestsRemoveCmd)

	requestsListCmd.Flags().StringP("status", "s", "", "Filter by status (pending, submitted, available, ...)")

	requestsAddCmd.Flags().StringP("kind", "k", "movie", "Request kind (movie or episodes)")
	requestsAddCmd.Flags().Int("season", 0, "Season number (episodes only)")
	requestsAddCmd.Flags().IntSlice("episode", nil, "Episode numbers (episodes only, repeatable)")
	requestsAddCmd.Flags().StringP("user", "u", "", "Requesting user")
	requestsAddCmd.Flags().Bool("approve", false, "Approve immediately instead of leaving pending")
}

func argID(args []string) (int64, error) {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return id, nil
}

func runRequestsList(cmd *cobra.Command, args []string) error {
	statusFilter, _ := cmd.Flags().GetString("status")

	client := NewClient(serverURL)
	list, err := client.ListRequests()
	if err != nil {
		return fmt.Errorf("list requests failed: %w", err)
	}

	if statusFilter != "" {
		filtered := make([]RequestResponse, 0)
		for _, r := range list.Items {
			if strings.EqualFold(r.Status, statusFilter) {
				filtered = append(filtered, r)
			}
		}
		list.Items = filtered
		list.Total = len(filtered)
	}

	if jsonOutput {
		printJSON(list)
		return nil
	}

	printRequestsHuman(list)
	return nil
}

func printRequestsHuman(list *ListRequestsResponse) {
	if len(list.Items) == 0 {
		fmt.Println("No requests")
		return
	}

	fmt.Printf("Requests (%d):\n\n", list.Total)
	fmt.Printf("  %-4s %-8s %-36s %-20s %s\n", "ID", "KIND", "TITLE", "STATUS", "BY")
	fmt.Println("  " + strings.Repeat("-", 78))

	for _, r := range list.Items {
		title := r.Title
		if title == "" {
			title = fmt.Sprintf("catalog #%d", r.CatalogID)
		}
		if len(title) > 36 {
			title = title[:33] + "..."
		}
		fmt.Printf("  %-4d %-8s %-36s %-20s %s\n", r.ID, r.Kind, title, r.Status, r.RequestedBy)
	}
}

func runRequestsShow(cmd *cobra.Command, args []string) error {
	id, err := argID(args)
	if err != nil {
		return err
	}

	client := NewClient(serverURL)
	req, err := client.GetRequest(id)
	if err != nil {
		return fmt.Errorf("get request failed: %w", err)
	}

	if jsonOutput {
		printJSON(req)
		return nil
	}

	title := req.Title
	if title == "" {
		title = fmt.Sprintf("catalog #%d", req.CatalogID)
	}
	fmt.Printf("Request #%d  %s\n", req.ID, title)
	fmt.Printf("  Kind:      %s\n", req.Kind)
	fmt.Printf("  Status:    %s\n", req.Status)
	if req.StatusReason != nil {
		fmt.Printf("  Reason:    %s\n", *req.StatusReason)
	}
	fmt.Printf("  By:        %s\n", req.RequestedBy)
	fmt.Printf("  Created:   %s\n", req.CreatedAt.Format("2006-01-02 15:04"))

	if len(req.Items) > 0 {
		fmt.Printf("\n  Items (%d):\n", len(req.Items))
		for _, it := range req.Items {
			label := "movie"
			if it.Season != nil && it.Episode != nil {
				label = fmt.Sprintf("S%02dE%02d", *it.Season, *it.Episode)
			}
			fmt.Printf("    %-8s %s\n", label, it.Status)
		}
	}
	return nil
}

func runRequestsAdd(cmd *cobra.Command, args []string) error {
	catalogID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid catalog id %q", args[0])
	}

	kind, _ := cmd.Flags().GetString("kind")
	season, _ := cmd.Flags().GetInt("season")
	episodes, _ := cmd.Flags().GetIntSlice("episode")
	user, _ := cmd.Flags().GetString("user")
	autoApprove, _ := cmd.Flags().GetBool("approve")

	client := NewClient(serverURL)
	res, err := client.SubmitRequest(SubmitRequestBody{
		Kind:        kind,
		CatalogID:   catalogID,
		Season:      season,
		Episodes:    episodes,
		RequestedBy: user,
		AutoApprove: autoApprove,
	})
	if err != nil {
		return fmt.Errorf("submit failed: %w", err)
	}

	if jsonOutput {
		printJSON(res)
		return nil
	}

	if res.Request == nil {
		fmt.Println("Nothing to request: already covered by active requests")
		for _, c := range res.Conflicts {
			if c.Season != 0 || c.Episode != 0 {
				fmt.Printf("  S%02dE%02d already requested\n", c.Season, c.Episode)
			}
		}
		return nil
	}

	fmt.Printf("Request #%d created (%s)\n", res.Request.ID, res.Request.Status)
	for _, c := range res.Conflicts {
		fmt.Printf("  S%02dE%02d skipped: already requested\n", c.Season, c.Episode)
	}
	return nil
}

func runRequestsApprove(cmd *cobra.Command, args []string) error {
	id, err := argID(args)
	if err != nil {
		return err
	}

	client := NewClient(serverURL)
	if err := client.ApproveRequest(id); err != nil {
		return fmt.Errorf("approve failed: %w", err)
	}
	fmt.Printf("Request #%d approved\n", id)
	return nil
}

func runRequestsDeny(cmd *cobra.Command, args []string) error {
	id, err := argID(args)
	if err != nil {
		return err
	}

	client := NewClient(serverURL)
	if err := client.DenyRequest(id); err != nil {
		return fmt.Errorf("deny failed: %w", err)
	}
	fmt.Printf("Request #%d denied\n", id)
	return nil
}

func runRequestsRemove(cmd *cobra.Command, args []string) error {
	id, err := argID(args)
	if err != nil {
		return err
	}

	client := NewClient(serverURL)
	if err := client.DeleteRequest(id); err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}
	fmt.Printf("Request #%d removed\n", id)
	return nil
}
