package models

import "fmt"

// User is the signed-in operator as returned by the backend. The backend
// owns its shape, so the full object is kept and only the display name is
// interpreted here.
type User map[string]interface{}

// DisplayName prefers username, then name.
func (u User) DisplayName() string {
	for _, key := range []string{"username", "name"} {
		if v, ok := u[key]; ok && v != nil {
			if s := fmt.Sprint(v); s != "" {
				return s
			}
		}
	}
	return ""
}
