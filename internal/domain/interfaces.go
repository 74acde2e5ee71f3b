package domain

import "context"

// FeedWorker streams quotes from one upstream source into the sequencer.
type FeedWorker interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
}
