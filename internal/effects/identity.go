package effects

import (
	"strings"

	"github.com/KirkDiggler/effect-engine/internal/errors"
)

const (
	// ExpirePrefix starts every expiration trigger key handed to a scheduler
	ExpirePrefix = "Effects:Expire:"

	identitySeparator = "|"
	subIDSeparator    = ":"
)

// Identity names an effect instance: the effect (or source) name plus an
// optional sub id such as a damage type.
type Identity struct {
	Name  string
	SubID string
}

// IsZero reports whether both parts are empty
func (id Identity) IsZero() bool {
	return id.Name == "" && id.SubID == ""
}

// String encodes the identity as "<name>|<subId>". The zero identity encodes
// as the empty string.
func (id Identity) String() string {
	if id.IsZero() {
		return ""
	}
	return id.Name + identitySeparator + id.SubID
}

// ParseIdentity splits on the first "|". Without a separator the whole
// string is the name.
func ParseIdentity(s string) Identity {
	name, subID, _ := strings.Cut(s, identitySeparator)
	return Identity{Name: name, SubID: subID}
}

// CheckSubID rejects sub ids containing "|", which would be read back as
// part of the owner when a trigger key is decoded
func CheckSubID(subID string) error {
	if strings.Contains(subID, identitySeparator) {
		return errors.InvalidArgumentf("sub id %q must not contain '|'", subID).WithMeta("sub_id", subID)
	}
	return nil
}

// ExpirationKey correlates a scheduled timer with the effect it expires.
// Owner is the identity of the contribution whose expiry governs removal;
// it is zero when the requested duration itself was scheduled.
type ExpirationKey struct {
	Effect string
	SubID  string
	Owner  Identity
}

// String encodes the key as
// "<ExpirePrefix><effect>[:<subId>]|<owner>".
func (k ExpirationKey) String() string {
	var b strings.Builder
	b.WriteString(ExpirePrefix)
	b.WriteString(k.Effect)
	if k.SubID != "" {
		b.WriteString(subIDSeparator)
		b.WriteString(k.SubID)
	}
	b.WriteString(identitySeparator)
	b.WriteString(k.Owner.String())
	return b.String()
}

// ParseExpirationKey decodes a trigger key. It accepts keys without a sub id
// and keys without an owner segment. ok is false for keys that do not carry
// the expire prefix or name no effect.
func ParseExpirationKey(raw string) (key ExpirationKey, ok bool) {
	rest, found := strings.CutPrefix(raw, ExpirePrefix)
	if !found {
		return ExpirationKey{}, false
	}

	head, owner, _ := strings.Cut(rest, identitySeparator)
	effect, subID, _ := strings.Cut(head, subIDSeparator)
	if effect == "" {
		return ExpirationKey{}, false
	}

	return ExpirationKey{
		Effect: effect,
		SubID:  subID,
		Owner:  ParseIdentity(owner),
	}, true
}
