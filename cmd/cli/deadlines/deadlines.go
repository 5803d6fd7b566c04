package deadlines

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/duetrack/deadline-api/cmd/cli/config"
	"github.com/duetrack/deadline-api/cmd/cli/output"
	"github.com/spf13/cobra"
)

// deadline mirrors the API response shape including derived fields.
type deadline struct {
	ID            int       `json:"id"`
	Course        string    `json:"course"`
	Title         string    `json:"title"`
	Type          string    `json:"type"`
	DueDate       time.Time `json:"due_date"`
	DaysRemaining int       `json:"daysRemaining"`
	Overdue       bool      `json:"overdue"`
}

// ==========================
// Init Deadlines
// ==========================
func InitDeadlines(rootCmd *cobra.Command) {

	deadlinesCmd := &cobra.Command{
		Use:   "deadlines",
		Short: "Manage deadlines",
	}

	deadlinesCmd.AddCommand(
		listCmd(),
		addCmd(),
		updateCmd(),
		deleteCmd(),
	)

	rootCmd.AddCommand(deadlinesCmd)
}

// ==========================
// LIST
// ==========================
func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your deadlines",
		RunE: func(cmd *cobra.Command, args []string) error {
			var list []deadline
			if err := doRequest("GET", "/", nil, &list); err != nil {
				return err
			}

			rows := make([][]interface{}, 0, len(list))
			for _, d := range list {
				status := fmt.Sprintf("%d days left", d.DaysRemaining)
				if d.Overdue {
					status = "OVERDUE"
				}
				rows = append(rows, []interface{}{
					d.ID, d.Course, d.Title, d.Type, d.DueDate.Format("2006-01-02"), status,
				})
			}
			output.RenderTable([]string{"ID", "COURSE", "TITLE", "TYPE", "DUE", "STATUS"}, rows)
			return nil
		},
	}
}

// ==========================
// ADD
// ==========================
func addCmd() *cobra.Command {
	var course, title, dtype, due string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a deadline",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]string{
				"course":   course,
				"title":    title,
				"type":     dtype,
				"due_date": due,
			}

			var created deadline
			if err := doRequest("POST", "/", payload, &created); err != nil {
				return err
			}
			fmt.Printf("Created deadline %d (%s: %s, due %s)\n",
				created.ID, created.Course, created.Title, created.DueDate.Format("2006-01-02"))
			return nil
		},
	}

	cmd.Flags().StringVar(&course, "course", "", "course name")
	cmd.Flags().StringVar(&title, "title", "", "deadline title")
	cmd.Flags().StringVar(&dtype, "type", "", "one of: assignment, exam, midterm")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")

	return cmd
}

// ==========================
// UPDATE
// ==========================
func updateCmd() *cobra.Command {
	var course, title, dtype, due string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a deadline (only the flags you set are changed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]string{}
			if cmd.Flags().Changed("course") {
				payload["course"] = course
			}
			if cmd.Flags().Changed("title") {
				payload["title"] = title
			}
			if cmd.Flags().Changed("type") {
				payload["type"] = dtype
			}
			if cmd.Flags().Changed("due") {
				payload["due_date"] = due
			}
			if len(payload) == 0 {
				return fmt.Errorf("nothing to update: set at least one of --course, --title, --type, --due")
			}

			var updated deadline
			if err := doRequest("PUT", "/"+args[0], payload, &updated); err != nil {
				return err
			}
			fmt.Printf("Updated deadline %d (%s: %s, due %s)\n",
				updated.ID, updated.Course, updated.Title, updated.DueDate.Format("2006-01-02"))
			return nil
		},
	}

	cmd.Flags().StringVar(&course, "course", "", "course name")
	cmd.Flags().StringVar(&title, "title", "", "deadline title")
	cmd.Flags().StringVar(&dtype, "type", "", "one of: assignment, exam, midterm")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")

	return cmd
}

// ==========================
// DELETE
// ==========================
func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a deadline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Message string `json:"message"`
			}
			if err := doRequest("DELETE", "/"+args[0], nil, &out); err != nil {
				return err
			}
			fmt.Println(out.Message)
			return nil
		},
	}
}

// doRequest performs an authenticated JSON request against the API.
func doRequest(method, path string, payload interface{}, out interface{}) error {
	token, err := config.ReadToken()
	if err != nil {
		return fmt.Errorf("not logged in: run 'duetrack login' first")
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, config.APIURL()+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("session expired: run 'duetrack login' again")
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return err
		}
	}
	return nil
}
