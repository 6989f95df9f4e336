package engine

import "github.com/noah-isme/studio-ops-api/internal/models"

type userDirectory map[string]models.User

func indexUsers(users []models.User) userDirectory {
	directory := make(userDirectory, len(users))
	for _, user := range users {
		if user.ID == "" {
			continue
		}
		directory[user.ID] = user
	}
	return directory
}

// resolve returns the display name and email for userID, falling back to the placeholder.
func (d userDirectory) resolve(userID string) (string, string) {
	user, ok := d[userID]
	if !ok {
		return UnknownClientName, ""
	}
	return DisplayName(user), user.Email
}

// DisplayName is the name staff see for a client: full name, else email, else the placeholder.
func DisplayName(user models.User) string {
	switch {
	case user.FullName != "":
		return user.FullName
	case user.Email != "":
		return user.Email
	default:
		return UnknownClientName
	}
}
