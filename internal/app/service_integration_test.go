package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nazjaz/shortlist/internal/adapters/source"
	service "github.com/nazjaz/shortlist/internal/app"
	"github.com/nazjaz/shortlist/internal/domain/model"
	"github.com/nazjaz/shortlist/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func integrationSnapshot() *source.Snapshot {
	return &source.Snapshot{
		Candidates: []model.Candidate{
			{ID: "item-1", Name: "Trail Shoes", Category: "fitness", Tags: []string{"running", "outdoor"}, InStock: true, Quantity: 5},
			{ID: "item-2", Name: "Yoga Mat", Category: "fitness", Tags: []string{"yoga"}, InStock: true, Quantity: 2},
			{ID: "item-3", Name: "Espresso Maker", Category: "kitchen", Tags: []string{"coffee"}, InStock: true, Quantity: 1},
		},
		Profiles: []model.Profile{
			{UserID: "user-1", Interests: []string{"running", "coffee"}},
			{UserID: "user-2", Interests: []string{"yoga"}},
		},
	}
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service with full integration", t, func() {
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(1000),
			service.WithLedgerSize(500),
			service.WithMinScore(0),
			service.WithSnapshot(integrationSnapshot()),
		)
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		Convey("When starting the service", func() {
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
			})

			Convey("And the service should be running", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
			})
		})

		Convey("When processing interactions end-to-end", func() {
			err := svc.Start(ctx)
			So(err, ShouldBeNil)

			// Give service time to start
			time.Sleep(100 * time.Millisecond)

			Convey("And enqueueing multiple interactions", func() {
				interactions := []model.Interaction{
					{
						InteractionID: "interaction-1",
						UserID:        "user-1",
						ItemID:        "item-1",
						Kind:          model.KindView,
						Value:         1,
						TS:            time.Now(),
					},
					{
						InteractionID: "interaction-2",
						UserID:        "user-2",
						ItemID:        "item-2",
						Kind:          model.KindRating,
						Value:         4.5,
						TS:            time.Now(),
					},
					{
						InteractionID: "interaction-3",
						UserID:        "user-1", // Same user, same item again
						ItemID:        "item-1",
						Kind:          model.KindView,
						Value:         1,
						TS:            time.Now(),
					},
				}

				// Enqueue all interactions
				for _, in := range interactions {
					success := svc.Enqueue(ctx, in)
					So(success, ShouldBeTrue)
				}

				// Give workers time to process
				time.Sleep(500 * time.Millisecond)

				Convey("Then interactions should be processed", func() {
					stats := svc.GetStats()
					So(stats, ShouldNotBeNil)
				})

				Convey("And duplicate interaction ids should be detected", func() {
					So(svc.SeenAndRecord(ctx, "interaction-1"), ShouldBeFalse)
					So(svc.SeenAndRecord(ctx, "interaction-1"), ShouldBeTrue)
				})

				Convey("And the ranked list should be updated", func() {
					// Get top N entries
					recs, err := svc.TopN(ctx, 10)
					So(err, ShouldBeNil)
					So(len(recs), ShouldBeGreaterThan, 0)

					// Verify ordering (highest scores first)
					for i := 1; i < len(recs); i++ {
						So(recs[i-1].Score, ShouldBeGreaterThanOrEqualTo, recs[i].Score)
					}
				})

				Convey("And individual ranks should be available", func() {
					rec, err := svc.Rank(ctx, "item-1")
					So(err, ShouldBeNil)
					So(rec.ItemID, ShouldEqual, "item-1")
					So(rec.Score, ShouldBeGreaterThan, 0)
					So(rec.Rank, ShouldBeGreaterThan, 0)
					So(rec.Tier, ShouldBeIn, []string{"high", "medium", "low"})
				})
			})
		})

		Convey("When handling high-volume interactions", func() {
			err := svc.Start(ctx)
			So(err, ShouldBeNil)

			// Give service time to start
			time.Sleep(100 * time.Millisecond)

			Convey("And enqueueing many interactions", func() {
				numInteractions := 100
				interactions := make([]model.Interaction, numInteractions)

				// Generate interactions
				for i := 0; i < numInteractions; i++ {
					interactions[i] = model.Interaction{
						InteractionID: fmt.Sprintf("bulk-interaction-%d", i),
						UserID:        fmt.Sprintf("user-%d", i%2+1),
						ItemID:        fmt.Sprintf("bulk-item-%d", i%10), // 10 different items
						Kind:          model.KindView,
						Value:         1,
						TS:            time.Now(),
					}
				}

				// Enqueue all interactions
				successCount := 0
				for _, in := range interactions {
					if svc.Enqueue(ctx, in) {
						successCount++
					}
				}

				Convey("Then most interactions should be enqueued successfully", func() {
					So(successCount, ShouldBeGreaterThan, numInteractions/2)
				})

				// Give workers time to process
				time.Sleep(1 * time.Second)

				Convey("And the ranked list should reflect the updates", func() {
					recs, err := svc.TopN(ctx, 20)
					So(err, ShouldBeNil)
					So(len(recs), ShouldBeGreaterThan, 0)

					// Verify we have entries for multiple items
					itemIDs := make(map[string]bool)
					for _, rec := range recs {
						itemIDs[rec.ItemID] = true
					}
					So(len(itemIDs), ShouldBeGreaterThan, 1)
				})
			})
		})

		Convey("When handling service lifecycle", func() {
			Convey("And starting and stopping multiple times", func() {
				// Start service
				err := svc.Start(ctx)
				So(err, ShouldBeNil)

				// Give it time to start
				time.Sleep(100 * time.Millisecond)

				// Stop service
				svc.Stop()

				// Give it time to stop
				time.Sleep(100 * time.Millisecond)

				// Check it's stopped
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, false)

				// Start again
				err = svc.Start(ctx)
				So(err, ShouldBeNil)

				// Give it time to start
				time.Sleep(100 * time.Millisecond)

				// Check it's started again
				stats = svc.GetStats()
				So(stats["started"], ShouldEqual, true)
			})
		})

		Convey("When handling edge cases", func() {
			err := svc.Start(ctx)
			So(err, ShouldBeNil)

			// Give service time to start
			time.Sleep(100 * time.Millisecond)

			Convey("And enqueueing interactions with extreme values", func() {
				extremeInteractions := []model.Interaction{
					{
						InteractionID: "extreme-1",
						UserID:        "user-extreme",
						ItemID:        "item-extreme",
						Kind:          model.KindRating,
						Value:         0,
						TS:            time.Now(),
					},
					{
						InteractionID: "extreme-2",
						UserID:        "user-extreme",
						ItemID:        "item-extreme",
						Kind:          model.KindRating,
						Value:         1000,
						TS:            time.Now(),
					},
					{
						InteractionID: "extreme-3",
						UserID:        "user-extreme",
						ItemID:        "item-extreme",
						Kind:          model.KindRating,
						Value:         -100,
						TS:            time.Now().AddDate(-10, 0, 0), // very stale
					},
				}

				for _, in := range extremeInteractions {
					success := svc.Enqueue(ctx, in)
					So(success, ShouldBeTrue)
				}

				// Give workers time to process
				time.Sleep(500 * time.Millisecond)

				Convey("Then extreme values should be handled", func() {
					// Service should still be running
					stats := svc.GetStats()
					So(stats["started"], ShouldEqual, true)
				})
			})

			Convey("And enqueueing interactions with very long IDs", func() {
				longID := "very-long-interaction-id-" + string(make([]byte, 1000))
				longItemID := "very-long-item-id-" + string(make([]byte, 1000))

				in := model.Interaction{
					InteractionID: longID,
					UserID:        "user-1",
					ItemID:        longItemID,
					Kind:          model.KindView,
					Value:         1,
					TS:            time.Now(),
				}

				success := svc.Enqueue(ctx, in)
				So(success, ShouldBeTrue)

				// Give workers time to process
				time.Sleep(500 * time.Millisecond)

				Convey("Then long IDs should be handled", func() {
					// Service should still be running
					stats := svc.GetStats()
					So(stats["started"], ShouldEqual, true)
				})
			})
		})
	})
}

func TestServiceConcurrency(t *testing.T) {
	Convey("Given a service with concurrent operations", t, func() {
		svc := service.New(
			service.WithWorkerCount(4),
			service.WithQueueSize(2000),
			service.WithLedgerSize(1000),
			service.WithMinScore(0),
		)
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := svc.Start(ctx)
		So(err, ShouldBeNil)

		// Give service time to start
		time.Sleep(100 * time.Millisecond)

		Convey("When multiple goroutines enqueue interactions concurrently", func() {
			numGoroutines := 10
			interactionsPerGoroutine := 50
			done := make(chan bool, numGoroutines)

			// Start multiple goroutines
			for i := 0; i < numGoroutines; i++ {
				go func(goroutineID int) {
					for j := 0; j < interactionsPerGoroutine; j++ {
						in := model.Interaction{
							InteractionID: fmt.Sprintf("concurrent-interaction-%d-%d", goroutineID, j),
							UserID:        fmt.Sprintf("user-%d", goroutineID),
							ItemID:        fmt.Sprintf("item-%d", goroutineID),
							Kind:          model.KindView,
							Value:         1,
							TS:            time.Now(),
						}
						svc.Enqueue(ctx, in)
					}
					done <- true
				}(i)
			}

			// Wait for all goroutines to complete
			for i := 0; i < numGoroutines; i++ {
				<-done
			}

			// Give workers time to process
			time.Sleep(2 * time.Second)

			Convey("Then all interactions should be processed", func() {
				// Service should still be running
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)

				// Should have entries in the ranked list
				recs, err := svc.TopN(ctx, 100)
				So(err, ShouldBeNil)
				So(len(recs), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When multiple goroutines query the ranked list concurrently", func() {
			numGoroutines := 20
			done := make(chan bool, numGoroutines)
			errors := make(chan error, numGoroutines*20) // Buffer for potential errors

			// Start multiple goroutines querying
			for i := 0; i < numGoroutines; i++ {
				go func(goroutineID int) {
					for j := 0; j < 10; j++ {
						// Query TopN
						recs, err := svc.TopN(ctx, 10)
						if err != nil {
							errors <- err
							continue
						}
						if recs == nil {
							errors <- fmt.Errorf("recommendations is nil")
							continue
						}

						// Query individual rank
						if len(recs) > 0 {
							rec, err := svc.Rank(ctx, recs[0].ItemID)
							if err != nil {
								errors <- err
								continue
							}
							if rec.ItemID == "" {
								errors <- fmt.Errorf("item ID is empty")
								continue
							}
						}
					}
					done <- true
				}(i)
			}

			// Wait for all goroutines to complete
			for i := 0; i < numGoroutines; i++ {
				<-done
			}

			Convey("Then all queries should succeed", func() {
				// Check if any errors occurred
				select {
				case err := <-errors:
					So(err, ShouldBeNil)
				default:
					// No errors, test passed
					So(true, ShouldBeTrue)
				}
			})
		})
	})
}

func TestServiceErrorHandling(t *testing.T) {
	Convey("Given a service with error conditions", t, func() {
		svc := service.New(
			service.WithWorkerCount(1),
			service.WithQueueSize(10), // Small queue to test backpressure
			service.WithLedgerSize(5),
		)
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := svc.Start(ctx)
		So(err, ShouldBeNil)

		// Give service time to start
		time.Sleep(100 * time.Millisecond)

		Convey("When enqueueing interactions beyond queue capacity", func() {
			successCount := 0
			for i := 0; i < 20; i++ {
				in := model.Interaction{
					InteractionID: fmt.Sprintf("backpressure-interaction-%d", i),
					UserID:        "user-1",
					ItemID:        fmt.Sprintf("item-%d", i),
					Kind:          model.KindView,
					Value:         1,
					TS:            time.Now(),
				}
				if svc.Enqueue(ctx, in) {
					successCount++
				}
			}

			Convey("Then enqueue should report per-interaction success", func() {
				So(successCount, ShouldBeGreaterThan, 0)
				So(successCount, ShouldBeLessThanOrEqualTo, 20)
			})
		})

		Convey("When querying non-existent items", func() {
			rec, err := svc.Rank(ctx, "non-existent-item")

			Convey("Then it should return an error", func() {
				So(err, ShouldNotBeNil)
				So(rec.ItemID, ShouldEqual, "")
			})
		})

		Convey("When querying with invalid limits", func() {
			recs, err := svc.TopN(ctx, 0)

			Convey("Then it should return an error", func() {
				So(err, ShouldNotBeNil)
				So(recs, ShouldBeNil)
			})
		})

		Convey("When querying with negative limits", func() {
			recs, err := svc.TopN(ctx, -1)

			Convey("Then it should return an error", func() {
				So(err, ShouldNotBeNil)
				So(recs, ShouldBeNil)
			})
		})
	})
}

func TestServicePerformance(t *testing.T) {
	Convey("Given a service for performance testing", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(10000),
			service.WithLedgerSize(5000),
			service.WithMinScore(0),
		)
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := svc.Start(ctx)
		So(err, ShouldBeNil)

		// Give service time to start
		time.Sleep(100 * time.Millisecond)

		Convey("When processing a large number of interactions", func() {
			numInteractions := 1000
			start := time.Now()

			// Enqueue interactions
			for i := 0; i < numInteractions; i++ {
				in := model.Interaction{
					InteractionID: fmt.Sprintf("perf-interaction-%d", i),
					UserID:        fmt.Sprintf("user-%d", i%20),
					ItemID:        fmt.Sprintf("item-%d", i%100), // 100 different items
					Kind:          model.KindView,
					Value:         1,
					TS:            time.Now(),
				}
				svc.Enqueue(ctx, in)
			}

			enqueueTime := time.Since(start)

			// Give workers time to process
			time.Sleep(2 * time.Second)

			Convey("Then enqueueing should be fast", func() {
				// Should be able to enqueue 1000 interactions in reasonable time
				So(enqueueTime, ShouldBeLessThan, 5*time.Second)
			})

			Convey("And ranked list queries should be fast", func() {
				start := time.Now()
				recs, err := svc.TopN(ctx, 100)
				queryTime := time.Since(start)

				So(err, ShouldBeNil)
				So(len(recs), ShouldBeGreaterThan, 0)
				So(queryTime, ShouldBeLessThan, 100*time.Millisecond)
			})

			Convey("And rank queries should be fast", func() {
				start := time.Now()
				rec, err := svc.Rank(ctx, "item-0")
				queryTime := time.Since(start)

				So(err, ShouldBeNil)
				So(rec.ItemID, ShouldEqual, "item-0")
				So(queryTime, ShouldBeLessThan, 100*time.Millisecond)
			})
		})
	})
}
