package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sudao/sudao/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed manifest.schema.json
var manifestSchema []byte

//go:embed default_catalog.json
var defaultManifest []byte

type manifest struct {
	Plugins []models.Plugin `json:"plugins" validate:"dive"`
}

// DefaultCatalog returns a fresh catalog with the built-in plugins.
func DefaultCatalog(logger *slog.Logger) *Catalog {
	catalog, err := ParseManifest(logger, defaultManifest)
	if err != nil {
		panic(fmt.Sprintf("built-in plugin manifest: %v", err))
	}

	return catalog
}

// LoadCatalog reads a manifest file; an empty path yields the default catalog.
func LoadCatalog(logger *slog.Logger, path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(logger), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plugin manifest: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin manifest: %w", err)
	}

	return ParseManifest(logger, data)
}

// ParseManifest validates data against the manifest schema and builds a catalog from it.
func ParseManifest(logger *slog.Logger, data []byte) (*Catalog, error) {
	err := validateManifest(data)
	if err != nil {
		return nil, err
	}

	var m manifest

	err = json.Unmarshal(data, &m)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	err = validator.New(validator.WithRequiredStructEnabled()).Struct(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	return NewCatalog(logger, m.Plugins)
}

func validateManifest(data []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(manifestSchema)
	dataLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	if !result.Valid() {
		var errors []string
		for _, desc := range result.Errors() {
			errors = append(errors, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidManifest, strings.Join(errors, "; "))
	}

	return nil
}
