// health.go — проверка готовности хранилища записей для /health/ready.
package store

import (
	"context"
	"fmt"
	"time"
)

// ReadinessChecker проверяет, что коллекция хранилища читается.
type ReadinessChecker struct {
	store      Store
	collection string
}

// NewReadinessChecker создаёт проверку готовности по пробной коллекции.
func NewReadinessChecker(s Store, collection string) *ReadinessChecker {
	return &ReadinessChecker{store: s, collection: collection}
}

// CheckReady читает пробную коллекцию. Повреждённая коллекция — fail.
func (c *ReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	records, err := c.store.ReadAll(ctx, c.collection)
	if err != nil {
		return "fail", fmt.Sprintf("коллекция %s недоступна: %v", c.collection, err)
	}
	return "ok", fmt.Sprintf("коллекция %s: %d записей", c.collection, len(records))
}
