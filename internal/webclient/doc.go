// Package webclient provides the HTTP layer: page fetching for
// crawlers and streaming artifact downloads with progress tracking.
//
// The crawler package consumes it through the crawler.PageLoader
// capability and the workflow package through workflow.Downloader, so
// tests can substitute canned documents and fake downloads without any
// network activity.
package webclient
