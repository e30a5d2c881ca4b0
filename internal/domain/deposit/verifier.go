package deposit

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/boostsocial/boost-api/internal/pkg/paystack"
)

// Trust records how a webhook was authenticated.
type Trust string

const (
	TrustSignature Trust = "signature"
	TrustAllowlist Trust = "allowlist"
)

// TransactionVerifier confirms a charge with Paystack out of band.
type TransactionVerifier interface {
	VerifyTransaction(ctx context.Context, reference string) (*paystack.Transaction, error)
}

// Verifier authenticates Paystack webhooks.
type Verifier struct {
	secret    string
	allowlist *paystack.Allowlist
	provider  TransactionVerifier
}

// NewVerifier creates a webhook verifier. provider may be nil, in which case
// allowlisted requests without a valid signature are only accepted when they
// carry no reference.
func NewVerifier(secret string, allowlist *paystack.Allowlist, provider TransactionVerifier) *Verifier {
	return &Verifier{secret: secret, allowlist: allowlist, provider: provider}
}

// Configured reports whether the signing secret is present.
func (v *Verifier) Configured() bool {
	return v.secret != ""
}

// Authenticate checks the signature over the exact request body. A failed
// signature is tolerated only from an allowlisted Paystack address, and the
// caller must then run Confirm on the parsed event.
func (v *Verifier) Authenticate(body []byte, signature, remoteAddr string) (Trust, error) {
	if !v.Configured() {
		return "", ErrNotConfigured
	}
	if paystack.VerifySignature(body, signature, v.secret) {
		return TrustSignature, nil
	}
	if v.allowlist.Contains(remoteAddr) {
		log.Warn().
			Str("remote_addr", remoteAddr).
			Bool("signature_present", signature != "").
			Msg("Paystack signature mismatch from allowlisted address")
		return TrustAllowlist, nil
	}
	return "", ErrInvalidSignature
}

// Confirm asks Paystack whether the referenced charge exists and, for
// charge.success, whether it really succeeded for at least the amount the
// event claims.
func (v *Verifier) Confirm(ctx context.Context, ev *WebhookEvent) error {
	ref := ev.Data.Reference
	if ref == "" {
		log.Warn().Str("event", ev.Event).Msg("SECURITY: accepting allowlisted webhook without reference")
		return nil
	}
	if v.provider == nil {
		return fmt.Errorf("%w: no provider client", ErrUntrustedSource)
	}

	tx, err := v.provider.VerifyTransaction(ctx, ref)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUntrustedSource, err)
	}
	if tx == nil {
		return fmt.Errorf("%w: reference %s unknown to provider", ErrUntrustedSource, ref)
	}
	if ev.Event != EventChargeSuccess {
		return nil
	}
	if !tx.IsSuccessful() {
		return fmt.Errorf("%w: provider reports status %q", ErrUntrustedSource, tx.Status)
	}
	if claimed := ev.Data.MajorAmount(); tx.MajorAmount().LessThan(claimed) {
		return fmt.Errorf("%w: provider reports %s, event claims %s", ErrUntrustedSource, tx.MajorAmount(), claimed)
	}
	return nil
}
