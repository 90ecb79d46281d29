// Package services implements the HTTP clients for the report backend.
//
// # Report Service
//
// [APIService] implements [ReportService] on net/http:
//   - [APIService.Generate] : POST /generate with {"startDate", "endDate"}; any non-2xx status is an error
//   - [APIService.OpenProgress] : GET /progress as a text/event-stream, returned as a [Stream]
//
// Events are parsed by go-sse's sse.Read; only unnamed and "message" events reach [Stream.Recv].
// The progress request carries no timeout. A stalled stream stays open until its context is cancelled
// or the [Stream] is closed.
//
// # History Service
//
// [HistoryService] implements [HistoryProvider] on resty:
//   - [HistoryService.List] : GET /history
//   - [HistoryService.DownloadURL] : absolute URL of GET /download/{file}
//   - [HistoryService.Download] : saves an artifact to disk
//
// These are idempotent reads and are retried on 429 and 5xx responses. Generate is never retried.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrAPIRequest] : request could not be built or sent, or returned a non-2xx status
//   - [shared.ErrTransport] : the progress stream could not be opened
//   - [shared.ErrHistory] : history listing failed or was not a JSON array
//   - [shared.ErrReportNotFound] : download returned 404
package services
