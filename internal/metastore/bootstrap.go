package metastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Embucket/embucket-sub001/internal/apierr"
	"github.com/Embucket/embucket-sub001/internal/embucketlog"
	"github.com/Embucket/embucket-sub001/internal/volume"
)

// bootstrapConfig mirrors the wire shape in spec §6:
//
//	volumes: [ { ident, type: memory|s3|s3_tables, <type-fields> } ]
//	databases: [ { ident, volume } ]
//	schemas: [ { database, schema } ]
type bootstrapConfig struct {
	Volumes []struct {
		Ident           string `yaml:"ident"`
		Type            string `yaml:"type"`
		Bucket          string `yaml:"bucket"`
		ARN             string `yaml:"arn"`
		Region          string `yaml:"region"`
		AccessKeyID     string `yaml:"access_key_id"`
		SecretAccessKey string `yaml:"secret_access_key"`
		Endpoint        string `yaml:"endpoint"`
	} `yaml:"volumes"`
	Databases []struct {
		Ident  string `yaml:"ident"`
		Volume string `yaml:"volume"`
	} `yaml:"databases"`
	Schemas []struct {
		Database string `yaml:"database"`
		Schema   string `yaml:"schema"`
	} `yaml:"schemas"`
}

// ResolveConfigPath resolves METASTORE_CONFIG against the working
// directory at process start when relative, and uses absolute paths
// as-is — this is the Open Question decision recorded in DESIGN.md,
// matching the teacher's own flag-default resolution idiom (relative
// to cwd, not the executable's directory).
func ResolveConfigPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolving cwd for METASTORE_CONFIG: %w", err)
	}
	return filepath.Join(cwd, path), nil
}

// Bootstrap reads a YAML description at path and idempotently creates
// missing volumes/databases/schemas: existing entities with the same
// ident are never rewritten (spec §4.1).
func Bootstrap(ctx context.Context, m Metastore, path string, log *embucketlog.Logger) error {
	if path == "" {
		return nil
	}

	resolved, err := ResolveConfigPath(path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return fmt.Errorf("reading metastore config %q: %w", resolved, err)
	}

	var cfg bootstrapConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parsing metastore config %q: %w", resolved, err)
	}

	for _, v := range cfg.Volumes {
		vol := volume.Volume{
			Ident:           v.Ident,
			Type:            volume.Type(v.Type),
			Bucket:          v.Bucket,
			ARN:             v.ARN,
			Region:          v.Region,
			AccessKeyID:     v.AccessKeyID,
			SecretAccessKey: v.SecretAccessKey,
			Endpoint:        v.Endpoint,
		}
		if err := m.CreateVolume(ctx, vol); err != nil {
			if !isAlreadyExists(err) {
				return fmt.Errorf("bootstrapping volume %q: %w", v.Ident, err)
			}
			log.Debug("Bootstrap: volume already exists, skipping:", v.Ident)
			continue
		}
		log.Info("Bootstrap: created volume", v.Ident)
	}

	for _, d := range cfg.Databases {
		if err := m.CreateDatabase(ctx, Database{Ident: d.Ident, VolumeName: d.Volume}); err != nil {
			if !isAlreadyExists(err) {
				return fmt.Errorf("bootstrapping database %q: %w", d.Ident, err)
			}
			log.Debug("Bootstrap: database already exists, skipping:", d.Ident)
			continue
		}
		log.Info("Bootstrap: created database", d.Ident)
	}

	for _, s := range cfg.Schemas {
		if err := m.CreateSchema(ctx, Schema{Database: s.Database, Ident: s.Schema}); err != nil {
			if !isAlreadyExists(err) {
				return fmt.Errorf("bootstrapping schema %q.%q: %w", s.Database, s.Schema, err)
			}
			log.Debug("Bootstrap: schema already exists, skipping:", s.Database+"."+s.Schema)
			continue
		}
		log.Info("Bootstrap: created schema", s.Database+"."+s.Schema)
	}

	return nil
}

func isAlreadyExists(err error) bool {
	apiErr, ok := err.(*apierr.Error)
	return ok && apiErr.Kind == apierr.KindAlreadyExists
}
