package deb

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
)

// Maintainer is the person responsible for the package, rendered as
// "Name <email>".
//
// The name may not contain a period: policy requires such names to be
// quoted, which this type does not do.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-controlfields.html#s-f-maintainer
type Maintainer struct {
	name  string
	email string
}

// NewMaintainer validates name and email.
func NewMaintainer(name, email string) (Maintainer, error) {
	full := fmt.Sprintf("%s <%s>", name, email)
	switch {
	case strings.TrimSpace(name) == "":
		return Maintainer{}, invalid(FieldMaintainer, full, "name is empty")
	case strings.Contains(name, "."):
		return Maintainer{}, invalid(FieldMaintainer, full, "name must not contain a period")
	case strings.ContainsAny(name, "<>,\"") || strings.IndexFunc(name, unicode.IsControl) >= 0:
		return Maintainer{}, invalid(FieldMaintainer, full, "name contains reserved characters")
	}
	if err := validateEmail(email); err != nil {
		return Maintainer{}, invalid(FieldMaintainer, full, "%v", err)
	}
	return Maintainer{name: name, email: email}, nil
}

// validateEmail accepts a bare addr-spec with a dotted domain.
func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}
	if addr.Name != "" || addr.Address != email {
		return fmt.Errorf("email must be a bare address")
	}
	at := strings.LastIndexByte(email, '@')
	domain := email[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return fmt.Errorf("email domain %q is not fully qualified", domain)
	}
	return nil
}

func (m Maintainer) String() string {
	return fmt.Sprintf("%s <%s>", m.name, m.email)
}

// Name returns the maintainer name.
func (m Maintainer) Name() string { return m.name }

// Email returns the maintainer address.
func (m Maintainer) Email() string { return m.email }
