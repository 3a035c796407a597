package sim

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RuntimeContext", func() {
	It("should start with zero elapsed time", func() {
		c := NewRuntimeContext(0)

		Expect(c.AppTimeUs()).To(Equal(uint64(0)))
		Expect(c.Elapsed()).To(Equal(time.Duration(0)))
	})

	It("should derive elapsed time from the previous tick", func() {
		c := NewRuntimeContext(0)

		c.UpdateAppTime(100000)
		c.UpdateAppTime(250000)

		Expect(c.AppTimeUs()).To(Equal(uint64(250000)))
		Expect(c.PreviousAppTimeUs()).To(Equal(uint64(100000)))
		Expect(c.Elapsed()).To(Equal(150 * time.Millisecond))
		Expect(c.AppTimeS()).To(BeNumerically("~", 0.25, 1e-12))
		Expect(c.Time()).To(Equal(250 * time.Millisecond))
	})

	It("should never move backward", func() {
		c := NewRuntimeContext(0)
		c.UpdateAppTime(500)

		c.UpdateAppTime(200)

		Expect(c.AppTimeUs()).To(Equal(uint64(500)))
		Expect(c.Elapsed()).To(Equal(time.Duration(0)))
	})

	It("should be copied by value", func() {
		c := NewRuntimeContext(0)
		snapshot := c

		c.UpdateAppTime(10)

		Expect(snapshot.AppTimeUs()).To(Equal(uint64(0)))
	})
})

var _ = Describe("Snapshot", func() {
	It("should convert to seconds", func() {
		s := Snapshot{AppTimeUs: 1500000, TimestepUs: 100000}

		Expect(s.AppTimeS()).To(BeNumerically("~", 1.5, 1e-12))
		Expect(s.TimestepS()).To(BeNumerically("~", 0.1, 1e-12))
	})
})
