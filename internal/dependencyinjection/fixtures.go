package dependencyinjection

import "testing"

func ClearInstancesTestHelper(t *testing.T) {
	t.Helper()

	dependenciesStore.Range(func(key, value interface{}) bool {
		dependenciesStore.Delete(key)
		return true
	})
}
