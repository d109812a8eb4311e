// Package httpclient issues the requests a virtual user makes and turns each
// response into a metrics.Outcome.
//
// # Request Building
//
// [NewRequestBuilder] captures the target and static headers once:
//
//	builder, err := httpclient.NewRequestBuilder(cfg)
//	if err != nil {
//		return err
//	}
//
// # Execution
//
// An [Executor] combines a client from [NewClient], a builder and a [Check]:
//
//	exec := httpclient.NewExecutor(
//		httpclient.NewClient(cfg.Timeout, cfg.VirtualUsers),
//		builder,
//		httpclient.NewCheck(cfg),
//		httpclient.WithTrackField(cfg.TrackField),
//	)
//	outcome := exec.Execute(ctx)
//
// Transport errors yield outcomes with StatusCode 0. Responses rejected by the
// check carry a [*CheckError].
package httpclient
