package prefs

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreBackend stores each namespace as one document in a collection.
type FirestoreBackend struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreBackend stores namespaces under the "preferences" collection.
func NewFirestoreBackend(client *firestore.Client) *FirestoreBackend {
	return &FirestoreBackend{client: client, collection: "preferences"}
}

func (f *FirestoreBackend) doc(namespace string) *firestore.DocumentRef {
	return f.client.Collection(f.collection).Doc(namespace)
}

func (f *FirestoreBackend) Load(ctx context.Context, namespace string) (map[string]string, error) {
	snap, err := f.doc(namespace).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("firestore get %s: %w", namespace, err)
	}

	values := make(map[string]string)
	for k, v := range snap.Data() {
		if s, ok := v.(string); ok {
			values[k] = s
			continue
		}
		values[k] = fmt.Sprint(v)
	}
	return values, nil
}

// Apply writes a single merge Set, so all fields land together.
func (f *FirestoreBackend) Apply(ctx context.Context, namespace string, set map[string]string, remove []string) error {
	data := make(map[string]interface{}, len(set)+len(remove))
	for _, k := range remove {
		data[k] = firestore.Delete
	}
	for k, v := range set {
		data[k] = v
	}
	if _, err := f.doc(namespace).Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("firestore set %s: %w", namespace, err)
	}
	return nil
}
