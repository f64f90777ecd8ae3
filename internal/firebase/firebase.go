package firebase

import (
	"context"

	"cloud.google.com/go/firestore"
	firebaseSDK "firebase.google.com/go"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

// NewFirestoreClient initializes the Firebase app from a service account file and returns its
// Firestore client. The caller owns the client and closes it through the document store.
func NewFirestoreClient(ctx context.Context, credentialsFile, projectID string) (*firestore.Client, error) {
	var conf *firebaseSDK.Config
	if projectID != "" {
		conf = &firebaseSDK.Config{ProjectID: projectID}
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebaseSDK.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase app")
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "creating firestore client")
	}

	return client, nil
}
