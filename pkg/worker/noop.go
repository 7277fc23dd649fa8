package worker

import "context"

// NoopEngagementSource lets Community run end-to-end with no social feed
// wired up. Every poll reports zero activity rather than failing.
type NoopEngagementSource struct{}

func (NoopEngagementSource) Sample(ctx context.Context) (EngagementSample, error) {
	return EngagementSample{}, nil
}

// NoopLaunchSource lets Launcher run end-to-end with no launchpad feed
// wired up. It never reports a new event.
type NoopLaunchSource struct{}

func (NoopLaunchSource) PollEvents(ctx context.Context) ([]LaunchEvent, error) {
	return nil, nil
}
