package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factory/pkg/eventstream"
	"github.com/papercomputeco/factory/pkg/project"
)

var _ = Describe("RunEvent", func() {
	now := time.Unix(1735689600, 0).UTC()
	run := &project.Run{
		ID:         "run-1",
		ProjectID:  "proj-1",
		Kind:       project.RunSynthesize,
		Status:     project.RunOK,
		StartedAt:  now.Add(-1500 * time.Millisecond),
		FinishedAt: now,
	}

	It("copies the run identity and timing", func() {
		ev := eventstream.NewRunEvent(run, "anthropic", now)
		Expect(ev.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(ev.EventType).To(Equal(eventstream.EventTypeRunAppended))
		Expect(ev.EventID).To(HavePrefix("evt_"))
		Expect(ev.ProjectID).To(Equal("proj-1"))
		Expect(ev.RunID).To(Equal("run-1"))
		Expect(ev.Kind).To(Equal(project.RunSynthesize))
		Expect(ev.Provider).To(Equal("anthropic"))
		Expect(ev.DurationMs).To(Equal(int64(1500)))
	})

	It("mints a fresh event id each time", func() {
		a := eventstream.NewRunEvent(run, "", now)
		b := eventstream.NewRunEvent(run, "", now)
		Expect(a.EventID).NotTo(Equal(b.EventID))
	})

	It("marshals with expected top-level keys", func() {
		payload, err := json.Marshal(eventstream.NewRunEvent(run, "", now))
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())
		for _, k := range []string{"schema_version", "event_type", "event_id", "emitted_at", "project_id", "run_id", "kind", "status", "started_at", "finished_at"} {
			Expect(got).To(HaveKey(k))
		}
		Expect(got).NotTo(HaveKey("provider"))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.EventTypeRunAppended).To(Equal("factory.run.appended"))
		Expect(eventstream.ErrNilRunEvent).To(MatchError("nil run event"))
	})
})
