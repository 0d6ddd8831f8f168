package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebogdum/drivefs/config"
)

func TestAPIKeyAuthenticator(t *testing.T) {
	a := NewAPIKeyAuthenticator([]config.APIKey{
		{Key: "alpha-key", UserID: "alice"},
		{Key: "beta-key", UserID: "bob"},
		{Key: "", UserID: "ignored"},
	})

	tests := []struct {
		name    string
		token   string
		want    string
		wantErr bool
	}{
		{name: "raw key", token: "alpha-key", want: "alice"},
		{name: "bearer prefix", token: "Bearer beta-key", want: "bob"},
		{name: "surrounding space", token: "Bearer  alpha-key ", want: "alice"},
		{name: "empty", token: "", wantErr: true},
		{name: "bearer only", token: "Bearer ", wantErr: true},
		{name: "unknown", token: "gamma-key", wantErr: true},
		{name: "prefix of a key", token: "alpha", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID, err := a.Authenticate(context.Background(), tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrAuthenticationFailed)
				assert.Empty(t, userID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, userID)
		})
	}
}
