package mirror

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore is the production Store.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore uses Application Default Credentials unless credJSON is given.
func NewFirestoreStore(ctx context.Context, projectID, credJSON string) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) Commit(ctx context.Context, writes []Write) error {
	if err := validateWrites(writes); err != nil {
		return err
	}
	if len(writes) == 0 {
		return nil
	}

	batch := s.client.Batch()
	for _, w := range writes {
		ref := s.client.Doc(w.Path)
		switch w.Kind {
		case WriteSet:
			batch.Set(ref, toFirestore(w.Data))
		case WriteMerge:
			batch.Set(ref, toFirestore(w.Data), firestore.MergeAll)
		case WriteDelete:
			batch.Delete(ref)
		default:
			return fmt.Errorf("mirror: unknown write kind %d", w.Kind)
		}
	}
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("firestore batch commit: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Get(ctx context.Context, path string) (map[string]any, error) {
	if !validDocPath(path) {
		return nil, fmt.Errorf("mirror: invalid document path %q", path)
	}
	snap, err := s.client.Doc(path).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("firestore get %s: %w", path, err)
	}
	return snap.Data(), nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// toFirestore swaps Increment markers for firestore transforms.
func toFirestore(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		switch val := v.(type) {
		case Increment:
			out[k] = firestore.Increment(int64(val))
		case map[string]any:
			out[k] = toFirestore(val)
		default:
			out[k] = v
		}
	}
	return out
}
