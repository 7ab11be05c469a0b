package dependencyinjection

import "sync"

// dependenciesStore is the global registry of shared service instances. Commands construct each
// dependency once and every later caller receives the same instance.
var dependenciesStore sync.Map

// SetInstance adds a new service instance to the registry.
func SetInstance(instanceName string, instance interface{}) {
	dependenciesStore.Store(instanceName, instance)
}

// GetInstance retrieves a service instance from the registry.
func GetInstance(instanceName string) (interface{}, bool) {
	return dependenciesStore.Load(instanceName)
}
