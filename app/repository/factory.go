package repository

import (
	"sync"

	"github.com/ManuelReschke/CalSync/internal/pkg/kv"
)

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	store kv.Store
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(store kv.Store) *Factory {
	return &Factory{
		store: store,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.store)
	})
	return f.repos
}

// GetEventRepository returns the event repository instance
func (f *Factory) GetEventRepository() EventRepository {
	return f.GetRepositories().Event
}

// GetCredentialRepository returns the credential repository instance
func (f *Factory) GetCredentialRepository() CredentialRepository {
	return f.GetRepositories().Credential
}

// GetMappingRepository returns the mapping repository instance
func (f *Factory) GetMappingRepository() MappingRepository {
	return f.GetRepositories().Mapping
}

// GetPreferenceRepository returns the calendar preference repository instance
func (f *Factory) GetPreferenceRepository() PreferenceRepository {
	return f.GetRepositories().Preference
}

// GetTraceRepository returns the trace repository instance
func (f *Factory) GetTraceRepository() TraceRepository {
	return f.GetRepositories().Trace
}

// Store exposes the underlying store for health checks.
func (f *Factory) Store() kv.Store {
	return f.store
}

// Global factory instance
var globalFactory *Factory
var factoryOnce sync.Once

// InitializeFactory initializes the global repository factory
func InitializeFactory(store kv.Store) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(store)
	})
}

// GetGlobalFactory returns the global repository factory instance
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("Repository factory not initialized. Call InitializeFactory first.")
	}
	return globalFactory
}

// GetGlobalRepositories returns the global repositories instance
func GetGlobalRepositories() *Repositories {
	return GetGlobalFactory().GetRepositories()
}
