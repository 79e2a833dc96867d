package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/eqtlab/ledger-syncer/syncer"
)

func newImportCmd(user *string) *cobra.Command {
	var account, since string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import new transactions of every linked account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := syncer.Options{Account: account}
			if since != "" {
				t, err := time.Parse(syncer.DateLayout, since)
				if err != nil {
					return fmt.Errorf("%w: --since must be YYYY-MM-DD: %w", syncer.ErrConfiguration, err)
				}
				opts.Since = &t
			}

			a, err := newApp(cmd.Context(), *user, false)
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.syncer.Import(cmd.Context(), opts)
			if report != nil {
				printReport(cmd.OutOrStdout(), report)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&account, "account", "a", "", "only import the linked account with this ledger name")
	cmd.Flags().StringVarP(&since, "since", "s", "", "import from this date (YYYY-MM-DD) instead of the last import")

	return cmd
}

func printReport(w io.Writer, report *syncer.RunReport) {
	for _, a := range report.Accounts {
		switch a.State {
		case syncer.StateCheckpointed:
			fmt.Fprintf(w, "%s: imported %d, %d already present (%d fetched, %s..%s)\n",
				a.AccountName, a.Imported, a.Duplicates, a.Filtered,
				a.Start.Format(syncer.DateLayout), a.End.Format(syncer.DateLayout))
		case syncer.StateSkipped:
			fmt.Fprintf(w, "%s: up to date\n", a.AccountName)
		case syncer.StateFailed:
			fmt.Fprintf(w, "%s: failed: %v\n", a.AccountName, a.Err)
		default:
			fmt.Fprintf(w, "%s: %s\n", a.AccountName, a.State)
		}
	}
}

func newCheckCmd(user *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Compare ledger balances with the balances reported by the bank",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), *user, false)
			if err != nil {
				return err
			}
			defer a.close()

			balances, err := a.syncer.Check(cmd.Context())
			for _, b := range balances {
				mark := "ok"
				if !b.LedgerBalance.Equal(b.AggregatorBalance) {
					mark = "MISMATCH"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ledger %s, bank %s %s\n",
					b.AccountName, b.LedgerBalance.StringFixed(2), b.AggregatorBalance.StringFixed(2), mark)
			}
			return err
		},
	}
}

type linkView struct {
	LedgerAccountID     string `yaml:"ledgerAccountId"`
	LedgerAccountName   string `yaml:"ledgerAccountName"`
	LedgerAccountType   string `yaml:"ledgerAccountType,omitempty"`
	AggregatorAccountID string `yaml:"aggregatorAccountId"`
	InstitutionID       string `yaml:"institutionId,omitempty"`
	BankName            string `yaml:"bankName,omitempty"`
	Mask                string `yaml:"mask,omitempty"`
	LastImport          string `yaml:"lastImport,omitempty"`
}

func newLsCmd(user *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List linked accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, store, err := loadStore(cmd.Context(), *user)
			if err != nil {
				return err
			}

			accounts, err := store.LinkedAccounts(cmd.Context())
			if err != nil {
				return err
			}

			// access tokens stay out of the listing
			views := make([]linkView, 0, len(accounts))
			for _, acc := range accounts {
				v := linkView{
					LedgerAccountID:     acc.LedgerAccountID,
					LedgerAccountName:   acc.LedgerAccountName,
					LedgerAccountType:   acc.LedgerAccountType,
					AggregatorAccountID: acc.AggregatorAccountID,
					InstitutionID:       acc.InstitutionID,
					BankName:            acc.BankName,
					Mask:                acc.Mask,
				}
				if acc.LastImport != nil {
					v.LastImport = acc.LastImport.Format(syncer.DateLayout)
				}
				views = append(views, v)
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(views)
		},
	}
}

func newLinkCmd(user *string) *cobra.Command {
	var acc syncer.LinkedAccount

	cmd := &cobra.Command{
		Use:   "link",
		Short: "Store a link between a ledger account and an aggregator account",
		Long: "Store a link between a ledger account and an aggregator account whose access token was " +
			"obtained elsewhere. Relinking an account keeps its last import date.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, store, err := loadStore(cmd.Context(), *user)
			if err != nil {
				return err
			}
			return store.Link(cmd.Context(), acc)
		},
	}

	f := cmd.Flags()
	f.StringVar(&acc.LedgerAccountID, "ledger-account-id", "", "ledger account id")
	f.StringVar(&acc.LedgerAccountName, "ledger-account-name", "", "ledger account name")
	f.StringVar(&acc.LedgerAccountType, "ledger-account-type", "checking", "ledger account type")
	f.StringVar(&acc.AggregatorAccountID, "aggregator-account-id", "", "Plaid account id")
	f.StringVar(&acc.AccessToken, "access-token", "", "Plaid access token of the item")
	f.StringVar(&acc.ItemID, "item-id", "", "Plaid item id")
	f.StringVar(&acc.InstitutionID, "institution-id", "", "Plaid institution id")
	f.StringVar(&acc.BankName, "bank", "", "bank display name, selects the description parser")
	f.StringVar(&acc.Mask, "mask", "", "last digits of the account number")
	for _, name := range []string{"ledger-account-id", "ledger-account-name", "aggregator-account-id", "access-token"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func newConfigCmd(user *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the location of the store file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, store, err := loadStore(cmd.Context(), *user)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), store.Path())
			return nil
		},
	}
}

func newServeCmd(user *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run imports periodically until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), *user, true)
			if err != nil {
				return err
			}
			defer a.close()

			return a.syncer.Serve(cmd.Context())
		},
	}
}
