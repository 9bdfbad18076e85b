package chat

// AnonymousDisplayName is the fallback shown when neither the identity nor
// the profile carries a display name.
const AnonymousDisplayName = "Anonymous User"

// Session is the in-memory merge of a vendor identity and its profile
// record. Identity and Profile are either both present or both absent; the
// two fetches behind the merge are sequential, not transactional, so a
// concurrent profile write can race the merge (last write wins).
type Session struct {
	Identity Identity
	Profile  *Profile
}

// UserID returns the vendor identity id.
func (s *Session) UserID() string {
	if s == nil || s.Identity == nil {
		return ""
	}
	return s.Identity.ID()
}

// Email returns the identity's email address.
func (s *Session) Email() string {
	if s == nil || s.Identity == nil {
		return ""
	}
	return s.Identity.Email()
}

// EmailVerified reports the merged verification flag. The profile record
// wins over the identity when both are present, mirroring the merge order.
func (s *Session) EmailVerified() bool {
	if s == nil || s.Identity == nil {
		return false
	}
	if s.Profile != nil {
		return s.Profile.EmailVerified
	}
	return s.Identity.EmailVerified()
}

// DisplayName returns the merged display name, falling back to
// AnonymousDisplayName.
func (s *Session) DisplayName() string {
	if s == nil {
		return AnonymousDisplayName
	}
	if s.Profile != nil && s.Profile.DisplayName != "" {
		return s.Profile.DisplayName
	}
	if s.Identity != nil && s.Identity.DisplayName() != "" {
		return s.Identity.DisplayName()
	}
	return AnonymousDisplayName
}

// PhotoURL returns the merged photo reference, empty when absent.
func (s *Session) PhotoURL() string {
	if s == nil {
		return ""
	}
	if s.Profile != nil && s.Profile.PhotoURL != "" {
		return s.Profile.PhotoURL
	}
	if s.Identity != nil {
		return s.Identity.PhotoURL()
	}
	return ""
}
