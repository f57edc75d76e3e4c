package service

// User is a coworking participant as resolved by the directory backend.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Session describes a coworking session, either one the client is a member
// of or an entry in the lobby directory.
type Session struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Password    string   `json:"password,omitempty"`
	UserIDs     []string `json:"user_ids"`
}

// Clone returns a deep copy so published snapshots cannot alias the
// state machine's internal slices.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.UserIDs = append([]string(nil), s.UserIDs...)
	return &out
}
