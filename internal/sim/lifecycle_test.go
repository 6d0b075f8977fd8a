package sim

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gravsim/internal/collision"
	"github.com/san-kum/gravsim/internal/dynamo"
)

var _ = Describe("Simulator", func() {
	var s *Simulator

	BeforeEach(func() {
		cfg := DefaultConfig()
		cfg.G = 1
		var err error
		s, err = New(cfg)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("lifecycle", func() {
		It("starts uninitialized with an empty snapshot", func() {
			Expect(s.State()).To(Equal(Uninitialized))
			Expect(s.Snapshot().Bodies).To(BeEmpty())
			Expect(s.Snapshot().Sequence).To(BeZero())
		})

		It("initializes on the first step", func() {
			Expect(s.Step()).To(Succeed())
			Expect(s.State()).To(Equal(Running))
			Expect(s.Snapshot().Tick).To(Equal(uint64(1)))
		})

		It("applies queued bodies on Initialize without advancing time", func() {
			_, err := s.AddBody(dynamo.BodySpec{Mass: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Initialize()).To(Succeed())
			Expect(s.State()).To(Equal(Initialized))
			Expect(s.Snapshot().Bodies).To(HaveLen(1))
			Expect(s.Snapshot().Tick).To(BeZero())
		})

		It("refuses to step while paused", func() {
			Expect(s.Step()).To(Succeed())
			Expect(s.Pause()).To(Succeed())
			Expect(s.State()).To(Equal(Paused))
			Expect(s.Step()).To(MatchError(dynamo.ErrNotRunning))
			Expect(s.Snapshot().Tick).To(Equal(uint64(1)))

			Expect(s.Resume()).To(Succeed())
			Expect(s.Step()).To(Succeed())
			Expect(s.Snapshot().Tick).To(Equal(uint64(2)))
		})

		It("is terminal once stopped", func() {
			s.Stop()
			Expect(s.State()).To(Equal(Stopped))
			Expect(s.Step()).To(MatchError(dynamo.ErrStopped))
			Expect(s.Pause()).To(MatchError(dynamo.ErrStopped))
			Expect(s.Resume()).To(MatchError(dynamo.ErrStopped))
			Expect(s.Initialize()).To(MatchError(dynamo.ErrStopped))
		})

		It("resets bodies, counters and ids but keeps the config", func() {
			cfg := s.Config()
			_, err := s.AddBody(dynamo.BodySpec{ID: 7, Mass: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Step()).To(Succeed())

			s.Reset()
			Expect(s.State()).To(Equal(Uninitialized))
			Expect(s.Snapshot().Bodies).To(BeEmpty())
			Expect(s.Snapshot().Tick).To(BeZero())
			Expect(s.Config()).To(Equal(cfg))

			id, err := s.AddBody(dynamo.BodySpec{ID: 7, Mass: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(dynamo.BodyID(7)))
		})
	})

	Describe("commands", func() {
		It("only takes effect at the next step boundary", func() {
			_, err := s.AddBody(dynamo.BodySpec{Mass: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Pending()).To(Equal(1))
			Expect(s.Snapshot().Bodies).To(BeEmpty())

			Expect(s.Step()).To(Succeed())
			Expect(s.Pending()).To(BeZero())
			Expect(s.Snapshot().Bodies).To(HaveLen(1))
		})

		It("assigns ids above every explicit id", func() {
			first, err := s.AddBody(dynamo.BodySpec{Mass: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(first).To(Equal(dynamo.BodyID(1)))

			_, err = s.AddBody(dynamo.BodySpec{ID: 10, Mass: 1})
			Expect(err).NotTo(HaveOccurred())

			next, err := s.AddBody(dynamo.BodySpec{Mass: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(next).To(Equal(dynamo.BodyID(11)))
		})

		It("rejects duplicate and retired ids", func() {
			_, err := s.AddBody(dynamo.BodySpec{ID: 3, Mass: 1})
			Expect(err).NotTo(HaveOccurred())

			_, err = s.AddBody(dynamo.BodySpec{ID: 3, Mass: 1})
			var dup *dynamo.DuplicateIDError
			Expect(errors.As(err, &dup)).To(BeTrue())
			Expect(dup.ID).To(Equal(dynamo.BodyID(3)))

			Expect(s.RemoveBody(3)).To(Succeed())
			Expect(s.Step()).To(Succeed())
			Expect(s.Snapshot().Bodies).To(BeEmpty())

			_, err = s.AddBody(dynamo.BodySpec{ID: 3, Mass: 1})
			Expect(err).To(MatchError(dynamo.ErrDuplicateID))
		})

		It("rejects invalid bodies without queueing them", func() {
			_, err := s.AddBody(dynamo.BodySpec{Mass: -1})
			Expect(err).To(MatchError(dynamo.ErrInvalidBody))
			Expect(s.Pending()).To(BeZero())
		})

		It("reports unknown bodies", func() {
			Expect(s.RemoveBody(42)).To(MatchError(dynamo.ErrNotFound))
			Expect(s.ApplyExternalAcceleration(42, dynamo.Vec3{X: 1})).To(MatchError(dynamo.ErrNotFound))
		})

		It("rejects invalid configs immediately", func() {
			cfg := s.Config()
			cfg.Integrator = "nope"
			Expect(s.UpdateConfig(cfg)).To(MatchError(dynamo.ErrUnknownIntegrator))

			cfg = s.Config()
			cfg.TickRate = 0
			Expect(s.UpdateConfig(cfg)).To(MatchError(dynamo.ErrInvalidConfig))
			Expect(s.Pending()).To(BeZero())
		})

		It("switches config between steps", func() {
			cfg := s.Config()
			cfg.TimeScale = 2
			cfg.CollisionMode = collision.ModeMerge
			Expect(s.UpdateConfig(cfg)).To(Succeed())
			Expect(s.Config().TimeScale).To(Equal(1.0))

			Expect(s.Step()).To(Succeed())
			Expect(s.Config().TimeScale).To(Equal(2.0))
			Expect(s.Snapshot().Time).To(BeNumerically("~", 2.0/60, 1e-15))
		})
	})

	Describe("observers", func() {
		It("sees every published snapshot in order", func() {
			var seqs []uint64
			s.AddObserver(ObserverFunc(func(snap *Snapshot, _ []collision.MergeEvent) {
				seqs = append(seqs, snap.Sequence)
			}))
			for range 3 {
				Expect(s.Step()).To(Succeed())
			}
			Expect(seqs).To(Equal([]uint64{1, 2, 3}))
		})
	})
})
