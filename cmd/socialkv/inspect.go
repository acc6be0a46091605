package main

import (
	"errors"

	"github.com/spf13/cobra"

	"socialkv/internal/models"
	"socialkv/internal/store"
)

var errUserNotFound = errors.New("user not found")

func (c *command) initInspectCmd() {
	var id, nickname, phone, email, search string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Look up users in the configured backend",
		Long: "Look up one user by id, nickname, phone or email, search by name, " +
			"or list every user when no selector is given. Passwords are never printed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			driver, err := c.connect(ctx)
			if err != nil {
				return err
			}
			defer driver.Close()
			users := c.newStores(driver).Users

			var lookup func() (models.User, bool, error)
			switch {
			case id != "":
				lookup = func() (models.User, bool, error) { return users.GetUserByID(ctx, id) }
			case nickname != "":
				lookup = func() (models.User, bool, error) { return users.GetUserByNickname(ctx, nickname) }
			case phone != "":
				lookup = func() (models.User, bool, error) { return users.GetUserByPhone(ctx, phone) }
			case email != "":
				lookup = func() (models.User, bool, error) { return users.GetUserByEmail(ctx, email) }
			case search != "":
				found, err := users.SearchUsers(ctx, search)
				if err != nil {
					return err
				}
				return printJSON(cmd, found)
			default:
				return listUsers(cmd, users)
			}

			u, ok, err := lookup()
			if err != nil {
				return err
			}
			if !ok {
				return errUserNotFound
			}
			return printJSON(cmd, u)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "user id")
	cmd.Flags().StringVar(&nickname, "nickname", "", "user nickname")
	cmd.Flags().StringVar(&phone, "phone", "", "user phone")
	cmd.Flags().StringVar(&email, "email", "", "user email")
	cmd.Flags().StringVar(&search, "search", "", "case-insensitive name search")
	cmd.MarkFlagsMutuallyExclusive("id", "nickname", "phone", "email", "search")
	c.root.AddCommand(cmd)
}

func listUsers(cmd *cobra.Command, users *store.Users) error {
	all, err := users.GetAllUsers(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd, struct {
		Users []models.User `json:"users"`
		Total int           `json:"total"`
	}{all, len(all)})
}
