package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("BoundedBuffer", func() {
	var (
		buf *BoundedBuffer[int]
	)

	BeforeEach(func() {
		buf = NewBuffer[int]("Buf", 2)
	})

	It("should allow push and pop", func() {
		Expect(buf.Capacity()).To(Equal(2))
		Expect(buf.CanPush()).To(BeTrue())
		Expect(buf.IsEmpty()).To(BeTrue())

		Expect(buf.Push(1)).To(BeTrue())
		Expect(buf.CanPush()).To(BeTrue())
		Expect(buf.Size()).To(Equal(1))

		Expect(buf.Push(2)).To(BeTrue())
		Expect(buf.IsFull()).To(BeTrue())
		Expect(buf.Size()).To(Equal(2))

		Expect(buf.Front()).To(Equal(1))
		Expect(buf.Pop()).To(Equal(1))
		Expect(buf.Size()).To(Equal(1))
		Expect(buf.Front()).To(Equal(2))
		Expect(buf.Pop()).To(Equal(2))
		Expect(buf.IsEmpty()).To(BeTrue())
	})

	It("should reject push when full without losing data", func() {
		buf.Push(1)
		buf.Push(2)

		Expect(buf.Push(3)).To(BeFalse())
		Expect(buf.Size()).To(Equal(2))
		Expect(buf.Pop()).To(Equal(1))
		Expect(buf.Pop()).To(Equal(2))
	})

	It("should panic when popping an empty buffer", func() {
		Expect(func() { buf.Pop() }).To(Panic())
		Expect(func() { buf.Front() }).To(Panic())

		_, ok := buf.Peek()
		Expect(ok).To(BeFalse())
	})

	It("should clear", func() {
		buf.Push(2)
		Expect(buf.Size()).To(Equal(1))

		buf.Clear()

		Expect(buf.Size()).To(Equal(0))
		Expect(buf.IsEmpty()).To(BeTrue())
	})

	It("should invoke hooks on push and pop", func() {
		mockCtrl := gomock.NewController(GinkgoT())
		defer mockCtrl.Finish()

		hook := NewMockHook(mockCtrl)
		buf.AcceptHook(hook)

		hook.EXPECT().Func(gomock.Any()).Do(func(ctx HookCtx) {
			Expect(ctx.Pos).To(Equal(HookPosBufPush))
			Expect(ctx.Item).To(Equal(7))
		})
		buf.Push(7)

		hook.EXPECT().Func(gomock.Any()).Do(func(ctx HookCtx) {
			Expect(ctx.Pos).To(Equal(HookPosBufPop))
		})
		buf.Pop()
	})

	It("should reject invalid names", func() {
		Expect(func() { NewBuffer[int]("buf", 1) }).To(Panic())
		Expect(func() { NewBuffer[int]("Buf", 0) }).To(Panic())
	})
})
