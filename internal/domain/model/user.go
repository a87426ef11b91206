package model

import (
	"fmt"
	"strings"

	"realestate-payments/internal/domain"
)

// Payer is the app user opening a checkout. Users live in the external auth
// service; only what the provider needs is carried here.
type Payer struct {
	ID    string
	Name  string
	Email string
}

func (p *Payer) IsZero() bool { return p == nil || strings.TrimSpace(p.ID) == "" }

// ContactEmail returns the payer email, or a synthesized address under fallbackDomain
// when none is on file.
func (p *Payer) ContactEmail(fallbackDomain string) string {
	if e := strings.TrimSpace(p.Email); e != "" {
		return e
	}
	return fmt.Sprintf("user-%s@%s", p.ID, fallbackDomain)
}

func NewPayer(id, name, email string) (*Payer, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Payer{ID: id, Name: strings.TrimSpace(name), Email: strings.TrimSpace(email)}, nil
}
