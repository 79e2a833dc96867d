// Package file keeps linked accounts and import checkpoints in a JSON file, one per user and
// aggregator environment.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/eqtlab/ledger-syncer/syncer"
)

const linksKey = "links"

type Config struct {
	Dir string `env:"DIR"` // Defaults to <user config dir>/ledger-syncer
}

// link is the stored form of a syncer.LinkedAccount. Viper folds keys to lower case, mapstructure
// matches them case-insensitively.
type link struct {
	LedgerAccountID     string `mapstructure:"ledgerAccountId"`
	LedgerAccountName   string `mapstructure:"ledgerAccountName"`
	LedgerAccountType   string `mapstructure:"ledgerAccountType"`
	AggregatorAccountID string `mapstructure:"aggregatorAccountId"`
	AccessToken         string `mapstructure:"accessToken"`
	ItemID              string `mapstructure:"itemId"`
	InstitutionID       string `mapstructure:"institutionId"`
	BankName            string `mapstructure:"bankName"`
	Mask                string `mapstructure:"mask"`
	LastImport          string `mapstructure:"lastImport"`
}

// Store implements syncer.Store. Paths are dotted viper keys, so ids must not contain dots.
type Store struct {
	mu   sync.Mutex
	v    *viper.Viper
	path string
}

func Open(cfg Config, user, env string) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("user config dir: %w", err)
		}
		dir = filepath.Join(base, "ledger-syncer")
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.json", user, env))

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return &Store{v: v, path: path}, nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound)
}

// Path of the backing file. It may not exist yet.
func (s *Store) Path() string {
	return s.path
}

// LinkedAccounts returns the links ordered by ledger account name.
func (s *Store) LinkedAccounts(context.Context) ([]syncer.LinkedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var links map[string]link
	if err := s.v.UnmarshalKey(linksKey, &links); err != nil {
		return nil, fmt.Errorf("unmarshal links: %w", err)
	}

	out := make([]syncer.LinkedAccount, 0, len(links))
	for _, l := range links {
		acc, err := l.toLinkedAccount()
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].LedgerAccountName != out[j].LedgerAccountName {
			return out[i].LedgerAccountName < out[j].LedgerAccountName
		}
		return out[i].LedgerAccountID < out[j].LedgerAccountID
	})

	return out, nil
}

func (l link) toLinkedAccount() (syncer.LinkedAccount, error) {
	acc := syncer.LinkedAccount{
		LedgerAccountID:     l.LedgerAccountID,
		LedgerAccountName:   l.LedgerAccountName,
		LedgerAccountType:   l.LedgerAccountType,
		AggregatorAccountID: l.AggregatorAccountID,
		AccessToken:         l.AccessToken,
		ItemID:              l.ItemID,
		InstitutionID:       l.InstitutionID,
		BankName:            l.BankName,
		Mask:                l.Mask,
	}

	if l.LastImport != "" {
		t, err := time.Parse(syncer.DateLayout, l.LastImport)
		if err != nil {
			return syncer.LinkedAccount{}, fmt.Errorf("link %s last import: %w", l.LedgerAccountID, err)
		}
		acc.LastImport = &t
	}

	return acc, nil
}

// Link stores acc under its ledger account id. Relinking keeps the checkpoint.
func (s *Store) Link(_ context.Context, acc syncer.LinkedAccount) error {
	if acc.LedgerAccountID == "" {
		return errors.New("link without ledger account id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record := map[string]any{
		"ledgerAccountId":     acc.LedgerAccountID,
		"ledgerAccountName":   acc.LedgerAccountName,
		"ledgerAccountType":   acc.LedgerAccountType,
		"aggregatorAccountId": acc.AggregatorAccountID,
		"accessToken":         acc.AccessToken,
		"itemId":              acc.ItemID,
		"institutionId":       acc.InstitutionID,
		"bankName":            acc.BankName,
		"mask":                acc.Mask,
	}
	return s.merge(linksKey+"."+acc.LedgerAccountID, record)
}

// Get returns an empty string for a missing path.
func (s *Store) Get(_ context.Context, path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.v.GetString(path), nil
}

func (s *Store) Set(_ context.Context, path, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.merge(path, value)
}

// merge writes value at path into viper's config layer, so reading a parent key sees it, and
// persists the whole file.
func (s *Store) merge(path string, value any) error {
	parts := strings.Split(path, ".")
	tree := map[string]any{parts[len(parts)-1]: value}
	for i := len(parts) - 2; i >= 0; i-- {
		tree = map[string]any{parts[i]: tree}
	}

	if err := s.v.MergeConfigMap(tree); err != nil {
		return fmt.Errorf("merge %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}
