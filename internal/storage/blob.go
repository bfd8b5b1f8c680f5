package storage

import "context"

// Blob binds a KV to a single key, giving the ledger its persisted document.
type Blob struct {
	kv  KV
	key string
}

func NewBlob(kv KV, key string) *Blob {
	return &Blob{kv: kv, key: key}
}

func (b *Blob) Key() string { return b.key }

func (b *Blob) Load(ctx context.Context) ([]byte, error) {
	return b.kv.Get(ctx, b.key)
}

func (b *Blob) Save(ctx context.Context, blob []byte) error {
	return b.kv.Put(ctx, b.key, blob)
}
