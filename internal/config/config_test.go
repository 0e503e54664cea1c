package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSQLiteDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("UPLOAD_URL_PREFIX", "uploads/marketplace/")
	t.Setenv("ADMIN_EMAILS", "a@example.com,b@example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ImageStoreLocal, cfg.ImageStore)
	assert.Equal(t, "/uploads/marketplace", cfg.UploadURLPrefix)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.AdminEmails)
	assert.False(t, cfg.IsProduction())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"mysql missing host", Config{DBDriver: DriverMySQL, DBUser: "u", DBName: "n", ImageStore: ImageStoreLocal, UploadDir: "x", MaxUploadBytes: 1}, true},
		{"mysql via cloud sql", Config{DBDriver: DriverMySQL, DBUser: "u", DBName: "n", InstanceConnectionName: "p:r:i", ImageStore: ImageStoreLocal, UploadDir: "x", MaxUploadBytes: 1}, false},
		{"unknown driver", Config{DBDriver: "oracle", ImageStore: ImageStoreLocal, UploadDir: "x", MaxUploadBytes: 1}, true},
		{"gcs without bucket", Config{DBDriver: DriverSQLite, SQLitePath: "a.db", ImageStore: ImageStoreGCS, MaxUploadBytes: 1}, true},
		{"gcs with bucket", Config{DBDriver: DriverSQLite, SQLitePath: "a.db", ImageStore: ImageStoreGCS, StorageBucket: "b", MaxUploadBytes: 1}, false},
		{"s3 without bucket", Config{DBDriver: DriverSQLite, SQLitePath: "a.db", ImageStore: ImageStoreS3, MaxUploadBytes: 1}, true},
		{"s3 with bucket", Config{DBDriver: DriverSQLite, SQLitePath: "a.db", ImageStore: ImageStoreS3, StorageBucket: "b", MaxUploadBytes: 1}, false},
		{"zero upload limit", Config{DBDriver: DriverSQLite, SQLitePath: "a.db", ImageStore: ImageStoreLocal, UploadDir: "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tt.wantErr)
			}
		})
	}
}
