package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func items(statuses ...ItemStatus) []*Item {
	out := make([]*Item, len(statuses))
	for i, s := range statuses {
		out[i] = &Item{Status: s}
	}
	return out
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name  string
		items []*Item
		want  Status
	}{
		{"no items", nil, StatusPending},
		{"all pending", items(ItemPending, ItemPending), StatusPending},
		{"all submitted", items(ItemSubmitted, ItemSubmitted), StatusSubmitted},
		{"one submitted one pending", items(ItemSubmitted, ItemPending), StatusSubmitted},
		{"any downloading wins over submitted", items(ItemSubmitted, ItemDownloading), StatusDownloading},
		{"all available", items(ItemAvailable, ItemAvailable, ItemAvailable), StatusAvailable},
		{"some available", items(ItemAvailable, ItemDownloading), StatusPartiallyAvailable},
		{"available plus pending", items(ItemAvailable, ItemPending), StatusPartiallyAvailable},
		{"all removed", items(ItemRemoved, ItemRemoved), StatusRemoved},
		{"all failed", items(ItemFailed, ItemFailed), StatusFailed},
		{"failed plus removed only", items(ItemFailed, ItemRemoved), StatusFailed},
		{"failed excluded from live counts", items(ItemFailed, ItemAvailable), StatusAvailable},
		{"removed excluded from live counts", items(ItemRemoved, ItemAvailable, ItemAvailable), StatusAvailable},
		{"failed with downloading continues", items(ItemFailed, ItemDownloading), StatusDownloading},
		{"single movie available", items(ItemAvailable), StatusAvailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Aggregate(tt.items))
		})
	}
}

func TestAggregateIsPure(t *testing.T) {
	in := items(ItemAvailable, ItemDownloading)
	before := []ItemStatus{in[0].Status, in[1].Status}

	_ = Aggregate(in)
	_ = Aggregate(in)

	assert.Equal(t, before[0], in[0].Status)
	assert.Equal(t, before[1], in[1].Status)
	assert.Equal(t, StatusPartiallyAvailable, Aggregate(in))
}
