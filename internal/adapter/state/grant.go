package state

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/iho/qbwriter/internal/domain"
)

type grantFile struct {
	Created string `json:"created"`
	Data    struct {
		RefreshToken string `json:"refresh_token"`
	} `json:"data"`
}

// LoadGrant reads the OAuth authorization grant the connector was configured
// with.
func LoadGrant(path string) (domain.Grant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Grant{}, domain.NewConfigError("OAuth data is not available: %v", err)
	}

	var gf grantFile
	if err := json.Unmarshal(data, &gf); err != nil {
		return domain.Grant{}, domain.NewConfigError("cannot parse OAuth grant file: %v", err)
	}
	if gf.Data.RefreshToken == "" {
		return domain.Grant{}, domain.NewConfigError("OAuth grant file carries no refresh token")
	}

	created, err := ParseTimestamp(gf.Created)
	if err != nil {
		return domain.Grant{}, fmt.Errorf("parse grant creation timestamp: %w", err)
	}

	return domain.Grant{RefreshToken: gf.Data.RefreshToken, CreatedAt: created}, nil
}
