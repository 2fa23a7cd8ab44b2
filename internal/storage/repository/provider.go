package repository

import (
	"context"
	"fmt"
	"sync"
)

// Provider лениво создаёт единственный на процесс экземпляр Storage.
// Все последующие вызовы Get возвращают тот же экземпляр.
type Provider struct {
	dsn          string
	maxOpenConns int
	open         func(ctx context.Context, dsn string, maxOpenConns int) (*Storage, error)

	once    sync.Once
	storage *Storage
	err     error
}

// NewProvider создаёт провайдер для строки подключения dsn.
func NewProvider(dsn string, maxOpenConns int) *Provider {
	return &Provider{dsn: dsn, maxOpenConns: maxOpenConns, open: New}
}

// Get возвращает общий Storage, создавая его при первом обращении.
// Ошибка первого подключения запоминается.
func (p *Provider) Get(ctx context.Context) (*Storage, error) {
	const op = "storage.Provider.Get"
	p.once.Do(func() {
		p.storage, p.err = p.open(ctx, p.dsn, p.maxOpenConns)
	})
	if p.err != nil {
		return nil, fmt.Errorf("%s: %w", op, p.err)
	}
	return p.storage, nil
}

// Close закрывает Storage, если он был создан.
func (p *Provider) Close() error {
	if p.storage == nil {
		return nil
	}
	return p.storage.Close()
}
