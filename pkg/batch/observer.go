package batch

import "github.com/Rusty-starlightExpress/fantiadl/pkg/checkpoint"

// Observer receives progress notifications from a Runner. Calls are made
// from the runner's goroutine, in order.
type Observer interface {
	FanclubStarted(index, total int, entry checkpoint.Entry)
	PostStarted(entry checkpoint.Entry, postID string, n, total int)
	PostFinished(entry checkpoint.Entry, postID string, err error)
	FanclubFinished(result Result)
	BatchFinished(report *Report)
}

// NopObserver ignores every notification
type NopObserver struct{}

func (NopObserver) FanclubStarted(int, int, checkpoint.Entry)      {}
func (NopObserver) PostStarted(checkpoint.Entry, string, int, int) {}
func (NopObserver) PostFinished(checkpoint.Entry, string, error)   {}
func (NopObserver) FanclubFinished(Result)                         {}
func (NopObserver) BatchFinished(*Report)                          {}

// Observers fans notifications out to several observers in order
type Observers []Observer

func (o Observers) FanclubStarted(index, total int, entry checkpoint.Entry) {
	for _, obs := range o {
		obs.FanclubStarted(index, total, entry)
	}
}

func (o Observers) PostStarted(entry checkpoint.Entry, postID string, n, total int) {
	for _, obs := range o {
		obs.PostStarted(entry, postID, n, total)
	}
}

func (o Observers) PostFinished(entry checkpoint.Entry, postID string, err error) {
	for _, obs := range o {
		obs.PostFinished(entry, postID, err)
	}
}

func (o Observers) FanclubFinished(result Result) {
	for _, obs := range o {
		obs.FanclubFinished(result)
	}
}

func (o Observers) BatchFinished(report *Report) {
	for _, obs := range o {
		obs.BatchFinished(report)
	}
}
