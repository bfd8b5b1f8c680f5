package backend

import (
	"fmt"

	"anwarfarm/internal/config"
	"anwarfarm/internal/remote/s3doc"
	"anwarfarm/internal/remote/sheets"
)

// Config holds what the factory needs from the application config.
type Config struct {
	Local        LocalType
	SQLiteDBPath string
	LedgerKey    string

	Remote    RemoteType
	RemoteURL string
	Sheets    sheets.Config
	GCSBucket string
	GCSObject string
	S3        s3doc.Config
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	local := LocalType(appConfig.LocalBackend)
	if !local.IsValid() {
		return Config{}, fmt.Errorf("invalid local backend in config: %s", appConfig.LocalBackend)
	}
	rt := RemoteType(appConfig.RemoteBackend)
	if !rt.IsValid() {
		return Config{}, fmt.Errorf("invalid remote backend in config: %s", appConfig.RemoteBackend)
	}

	return Config{
		Local:        local,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		LedgerKey:    appConfig.LedgerKey,

		Remote:    rt,
		RemoteURL: appConfig.RemoteURL,
		Sheets: sheets.Config{
			SpreadsheetID:   appConfig.GoogleSpreadsheetID,
			SheetName:       appConfig.GoogleSheetName,
			CredentialsJSON: appConfig.GoogleCredentialsJSON,
			CredentialsFile: appConfig.GoogleCredentialsFile,
		},
		GCSBucket: appConfig.GCSBucket,
		GCSObject: appConfig.GCSObject,
		S3: s3doc.Config{
			Bucket:          appConfig.S3Bucket,
			Key:             appConfig.S3Key,
			Region:          appConfig.S3Region,
			Endpoint:        appConfig.S3Endpoint,
			AccessKeyID:     appConfig.S3AccessKeyID,
			SecretAccessKey: appConfig.S3SecretAccessKey,
		},
	}, nil
}
