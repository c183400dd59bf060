package models

import (
	"testing"
)

func TestUser_Validate(t *testing.T) {
	tests := []struct {
		name    string
		user    User
		wantErr bool
	}{
		{
			name:    "Valid user",
			user:    User{Username: "alice"},
			wantErr: false,
		},
		{
			name:    "Empty username",
			user:    User{Username: ""},
			wantErr: true,
		},
		{
			name:    "Username too short",
			user:    User{Username: "a"},
			wantErr: true,
		},
		{
			name:    "Username too long",
			user:    User{Username: "this-username-is-far-too-long-to-be-accepted-by-validation"},
			wantErr: true,
		},
		{
			name:    "Username with whitespace",
			user:    User{Username: "alice smith"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("User.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
