package persistence

import (
	"testing"

	"brandhub/infrastructure/configuration"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPostgreSQLDb(t *testing.T) {
	saved := configuration.C.Database
	t.Cleanup(func() { configuration.C.Database = saved })

	tests := []struct {
		name    string
		host    string
		wantErr bool
	}{
		{name: "missing host", host: "", wantErr: true},
		{name: "unreachable host", host: "127.0.0.1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configuration.C.Database.Psql = configuration.Db{Host: tt.host, Port: "1", Name: "brandhub", User: "brandhub"}
			db, err := NewPostgreSQLDB()
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, db)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNewMongoDb_RequiresHost(t *testing.T) {
	client, err := NewMongoDb("", "", "", "", "")
	assert.Error(t, err)
	assert.Nil(t, client)
}
