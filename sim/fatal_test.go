package sim

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FatalError", func() {
	It("should turn a fatal panic into an error", func() {
		err := CatchFatal(func() error {
			Fatalf("Mesh.Router[0][0]", DuplicateReservation, "in %d vc %d", 1, 0)
			return nil
		})

		Expect(err).To(HaveOccurred())
		Expect(IsViolation(err, DuplicateReservation)).To(BeTrue())
		Expect(IsViolation(err, LengthMismatch)).To(BeFalse())
		Expect(err.Error()).To(ContainSubstring("duplicate reservation"))
	})

	It("should pass returned errors through", func() {
		myErr := errors.New("boom")

		err := CatchFatal(func() error { return myErr })

		Expect(err).To(MatchError(myErr))
	})

	It("should not swallow other panics", func() {
		Expect(func() {
			_ = CatchFatal(func() error { panic("other") })
		}).To(PanicWith("other"))
	})
})
