package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"sortmemo/internal/domain"
	sorterr "sortmemo/internal/errors"
	"sortmemo/internal/sortstate"
)

func (c *cli) newPrefsCmd() *cobra.Command {
	prefs := &cobra.Command{
		Use:   "prefs",
		Short: "Inspect or clear saved sort preferences",
	}

	var userID, contentType string

	get := &cobra.Command{
		Use:   "get",
		Short: "Print saved preferences for a user as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			st := c.openStore(c.cfg)
			defer st.Close()

			var out interface{}
			if contentType != "" {
				pref, ok, err := st.Get(cmd.Context(), userID, sortstate.ResolveContentType("", contentType))
				if err != nil {
					return err
				}
				if !ok {
					out = []domain.SortPreference{}
				} else {
					out = []domain.SortPreference{pref}
				}
			} else {
				list, err := st.List(cmd.Context(), userID)
				if err != nil {
					return err
				}
				out = list
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	get.Flags().StringVar(&userID, "user", "", "user id")
	get.Flags().StringVar(&contentType, "type", "", "content type (all when empty)")
	_ = get.MarkFlagRequired("user")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the saved preference for one user and content type",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sortstate.Sanitize(contentType) == "" {
				return sorterr.New(sorterr.CodeRequestInvalid, "--type must not be empty")
			}
			st := c.openStore(c.cfg)
			defer st.Close()

			ct := sortstate.ResolveContentType("", contentType)
			if err := st.Delete(cmd.Context(), userID, ct); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "cleared %s sort for %s\n", ct, userID)
			return err
		},
	}
	clearCmd.Flags().StringVar(&userID, "user", "", "user id")
	clearCmd.Flags().StringVar(&contentType, "type", "", "content type")
	_ = clearCmd.MarkFlagRequired("user")
	_ = clearCmd.MarkFlagRequired("type")

	prefs.AddCommand(get, clearCmd)
	return prefs
}
