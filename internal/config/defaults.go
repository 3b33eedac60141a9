package config

import "github.com/spf13/viper"

// GetDefault returns the configuration used when nothing is overridden.
func GetDefault() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			Environment:     "dev",
			CORSOrigins:     []string{"http://localhost:3000"},
			ShutdownTimeout: "10s",
		},
		Log: LogConfig{
			Level: "info",
			JSON:  true,
			File:  "",
			Rotation: LogRotationConfig{
				MaxSize:    128,
				MaxBackups: 5,
				MaxAge:     16,
				Compress:   false,
			},
		},
		Metadata: MetadataConfig{
			Driver: "sqlite",
			Postgres: PostgresConfig{
				URL:         "",
				TablePrefix: "",
			},
			SQLite: SQLiteConfig{
				Path: "./data/foldervault.db",
			},
			Cache: CacheConfig{
				Size: 1024,
				TTL:  "5m",
			},
		},
		Storage: StorageConfig{
			Driver: "fs",
			FS: FSConfig{
				Root: "./data/localstorage",
			},
			S3: map[string]any{
				"bucket":     "",
				"region":     "us-east-1",
				"endpoint":   "",
				"key_prefix": "",
				"part_size":  DefaultS3PartSize,
			},
		},
		Upload: UploadConfig{
			ChunkSize:    DefaultChunkSize,
			MaxSize:      DefaultMaxUploadSize,
			AllowedTypes: append([]string(nil), DefaultAllowedTypes...),
		},
		Auth: AuthConfig{
			JWKSURL: "",
		},
		Progress: ProgressConfig{
			KeepAlive: "10s",
			Buffer:    64,
		},
	}
}

func setDefaults() {
	defaults := GetDefault()

	viper.SetDefault("server.port", defaults.Server.Port)
	viper.SetDefault("server.environment", defaults.Server.Environment)
	viper.SetDefault("server.cors_origins", defaults.Server.CORSOrigins)
	viper.SetDefault("server.shutdown_timeout", defaults.Server.ShutdownTimeout)

	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("log.json", defaults.Log.JSON)
	viper.SetDefault("log.file", defaults.Log.File)
	viper.SetDefault("log.no_terminal", defaults.Log.NoTerminal)
	viper.SetDefault("log.rotation.max_size", defaults.Log.Rotation.MaxSize)
	viper.SetDefault("log.rotation.max_backups", defaults.Log.Rotation.MaxBackups)
	viper.SetDefault("log.rotation.max_age", defaults.Log.Rotation.MaxAge)
	viper.SetDefault("log.rotation.compress", defaults.Log.Rotation.Compress)

	viper.SetDefault("metadata.driver", defaults.Metadata.Driver)
	viper.SetDefault("metadata.postgres.url", defaults.Metadata.Postgres.URL)
	viper.SetDefault("metadata.postgres.table_prefix", defaults.Metadata.Postgres.TablePrefix)
	viper.SetDefault("metadata.sqlite.path", defaults.Metadata.SQLite.Path)
	viper.SetDefault("metadata.cache.size", defaults.Metadata.Cache.Size)
	viper.SetDefault("metadata.cache.ttl", defaults.Metadata.Cache.TTL)

	viper.SetDefault("storage.driver", defaults.Storage.Driver)
	viper.SetDefault("storage.fs.root", defaults.Storage.FS.Root)
	for key, value := range defaults.Storage.S3 {
		viper.SetDefault("storage.s3."+key, value)
	}
	viper.SetDefault("storage.s3.access_key_id", "")
	viper.SetDefault("storage.s3.secret_access_key", "")

	viper.SetDefault("upload.chunk_size", defaults.Upload.ChunkSize)
	viper.SetDefault("upload.max_size", defaults.Upload.MaxSize)
	viper.SetDefault("upload.allowed_types", defaults.Upload.AllowedTypes)

	viper.SetDefault("auth.jwks_url", defaults.Auth.JWKSURL)

	viper.SetDefault("progress.keepalive", defaults.Progress.KeepAlive)
	viper.SetDefault("progress.buffer", defaults.Progress.Buffer)
}
