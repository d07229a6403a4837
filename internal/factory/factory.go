package factory

import (
	"fmt"
	"net/http"
	"time"

	"go-medical-analyzer/internal/analyzer"
	"go-medical-analyzer/internal/classifier"
	"go-medical-analyzer/internal/config"
	"go-medical-analyzer/internal/provider"
	"go-medical-analyzer/internal/registry"
	"go-medical-analyzer/internal/storage"
)

// ProviderType represents the analysis backends of the fallback chain
type ProviderType string

const (
	// RemoteVision for the hosted vision-language model
	RemoteVision ProviderType = provider.NameRemoteVision
	// DeepEnsemble for the local multi-classifier ensemble
	DeepEnsemble ProviderType = provider.NameDeepEnsemble
	// TabularHeuristic for the random forest over image statistics
	TabularHeuristic ProviderType = provider.NameTabularHeuristic
	// Heuristic for the rule-based assessment
	Heuristic ProviderType = provider.NameHeuristic
)

// StorageType represents different artifact store backends
type StorageType string

const (
	// HTTPStorage for artifacts served over HTTP
	HTTPStorage StorageType = config.ArtifactSourceHTTP
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = config.ArtifactSourceAzure
	// LocalStorage for a local directory
	LocalStorage StorageType = config.ArtifactSourceLocal
)

// ProviderFactory creates providers
type ProviderFactory interface {
	CreateProvider(providerType ProviderType) (provider.Provider, error)
	CreateChain(order []string) ([]provider.Provider, error)
}

// StorageFactory creates artifact stores
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.ArtifactStore, error)
}

// providerFactory implements ProviderFactory
type providerFactory struct {
	cfg       *config.Config
	manifest  *config.Manifest
	registry  *registry.ModelRegistry
	heuristic analyzer.HeuristicAnalyzer
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(cfg *config.Config, manifest *config.Manifest, reg *registry.ModelRegistry) ProviderFactory {
	return &providerFactory{
		cfg:       cfg,
		manifest:  manifest,
		registry:  reg,
		heuristic: analyzer.NewHeuristicAnalyzer(),
	}
}

// CreateProvider creates a provider based on the specified type
func (f *providerFactory) CreateProvider(providerType ProviderType) (provider.Provider, error) {
	switch providerType {
	case RemoteVision:
		return provider.NewRemoteVision(provider.RemoteVisionConfig{
			APIKey:  f.cfg.RemoteAPIKey,
			BaseURL: f.cfg.RemoteBaseURL,
			Model:   f.cfg.RemoteModel,
		}), nil
	case DeepEnsemble:
		return provider.NewDeepEnsemble(provider.DeepEnsembleConfig{
			Classifiers: f.manifest.Classifiers,
			Registry:    f.registry,
			Predictors:  f.predictorFactory(),
			Timeout:     f.cfg.ClassifierTimeout,
		}), nil
	case TabularHeuristic:
		return provider.NewTabularHeuristic(f.registry, f.cfg.TabularArtifact, f.heuristic), nil
	case Heuristic:
		return provider.NewHeuristic(f.heuristic), nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}

// CreateChain creates providers in the given priority order
func (f *providerFactory) CreateChain(order []string) ([]provider.Provider, error) {
	chain := make([]provider.Provider, 0, len(order))
	seen := make(map[string]bool, len(order))
	for _, name := range order {
		if seen[name] {
			return nil, fmt.Errorf("provider %q listed twice", name)
		}
		seen[name] = true

		p, err := f.CreateProvider(ProviderType(name))
		if err != nil {
			return nil, err
		}
		chain = append(chain, p)
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("empty provider chain")
	}
	return chain, nil
}

// predictorFactory binds classifiers to the model server. Without a server
// URL the ensemble reports itself unavailable.
func (f *providerFactory) predictorFactory() classifier.PredictorFactory {
	if f.cfg.ModelServerURL == "" {
		return nil
	}
	client := &http.Client{Timeout: 2 * time.Minute}
	return func(spec config.ClassifierSpec) classifier.Predictor {
		return classifier.NewServingPredictor(f.cfg.ModelServerURL, spec.ServingName, client)
	}
}

// storageFactory implements StorageFactory
type storageFactory struct {
	cfg *config.Config
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{cfg: cfg}
}

// CreateStorage creates an artifact store based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.ArtifactStore, error) {
	switch storageType {
	case HTTPStorage:
		if f.cfg.ArtifactBaseURL == "" {
			return nil, fmt.Errorf("http artifact source requires ARTIFACT_BASE_URL")
		}
		return storage.NewHTTPStorage(f.cfg.ArtifactBaseURL), nil
	case AzureStorage:
		return storage.NewAzureStorage(f.cfg.AzureAccount, f.cfg.AzureKey, f.cfg.AzureContainer)
	case LocalStorage:
		return storage.NewLocalStorage(f.cfg.ModelDir), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}
