package mmu

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/vmsim/mem"
	"github.com/sarchlab/vmsim/vm"
)

const testPageSize = 64

var _ = Describe("MMU", func() {
	var (
		mockCtrl *gomock.Controller
		backing  *MockPageStore
		manager  *Comp
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		backing = NewMockPageStore(mockCtrl)

		manager = MakeBuilder().
			WithPageSize(testPageSize).
			WithFrameCount(2).
			WithSwapSlotCount(4).
			WithBackingStore(backing).
			Build("MMU")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	fillPage := func(fill byte) []byte {
		return bytes.Repeat([]byte{fill}, testPageSize)
	}

	writePage := func(vpn uint64, fill byte) {
		frame, offset, err := manager.Translate(
			vpn*testPageSize, vm.AccessWrite)
		Expect(err).ToNot(HaveOccurred())
		Expect(offset).To(Equal(uint64(0)))

		err = manager.WritePhysical(frame, 0, fillPage(fill))
		Expect(err).ToNot(HaveOccurred())
	}

	readPage := func(vpn uint64) []byte {
		frame, _, err := manager.Translate(vpn*testPageSize, vm.AccessRead)
		Expect(err).ToNot(HaveOccurred())

		data, err := manager.ReadPhysical(frame, 0, testPageSize)
		Expect(err).ToNot(HaveOccurred())

		return data
	}

	Context("translation", func() {
		It("should fault on an unmapped address without consuming a frame",
			func() {
				_, _, err := manager.Translate(0x5000, vm.AccessRead)

				Expect(err).To(MatchError(vm.ErrSegmentationFault))
				Expect(manager.Frames().FreeCount()).To(Equal(2))
			})

		It("should zero-fill an anonymous page on first touch", func() {
			Expect(manager.Map(16, 1, false, 0)).To(Succeed())

			Expect(readPage(16)).To(Equal(make([]byte, testPageSize)))
		})

		It("should split the address into page number and offset", func() {
			Expect(manager.Map(16, 1, false, 0)).To(Succeed())

			_, offset, err := manager.Translate(
				16*testPageSize+13, vm.AccessRead)

			Expect(err).ToNot(HaveOccurred())
			Expect(offset).To(Equal(uint64(13)))
		})

		It("should mark a page dirty only on write access", func() {
			Expect(manager.Map(16, 1, false, 0)).To(Succeed())

			readPage(16)
			page, _ := manager.PageTable().Find(16)
			Expect(page.Dirty).To(BeFalse())

			writePage(16, 0xAA)
			page, _ = manager.PageTable().Find(16)
			Expect(page.Dirty).To(BeTrue())
		})
	})

	Context("mapping", func() {
		It("should not allocate frames before the first access", func() {
			Expect(manager.Map(16, 2, false, 0)).To(Succeed())

			Expect(manager.Frames().FreeCount()).To(Equal(2))
		})

		It("should reject an overlapping reservation", func() {
			Expect(manager.Map(16, 2, false, 0)).To(Succeed())

			err := manager.Map(17, 2, false, 0)

			Expect(err).To(MatchError(vm.ErrDoubleReservation))
		})
	})

	Context("eviction", func() {
		It("should round-trip page content through swap", func() {
			Expect(manager.Map(16, 2, false, 0)).To(Succeed())
			Expect(manager.Map(18, 1, false, 0)).To(Succeed())

			writePage(16, 0xAA)
			writePage(17, 0xBB)

			// The pool has two frames, so touching the third page evicts
			// page 16, the least recently used one.
			writePage(18, 0xCC)

			page, _ := manager.PageTable().Find(16)
			Expect(page.Present).To(BeFalse())
			Expect(page.InSwap).To(BeTrue())
			Expect(manager.Swap().FreeSlots()).To(Equal(3))

			// Reading page 16 faults it back in from its swap slot and
			// frees the slot. Page 17 becomes the next victim.
			Expect(readPage(16)).To(Equal(fillPage(0xAA)))

			page, _ = manager.PageTable().Find(16)
			Expect(page.Present).To(BeTrue())
			Expect(page.InSwap).To(BeFalse())

			page, _ = manager.PageTable().Find(17)
			Expect(page.Present).To(BeFalse())
			Expect(page.InSwap).To(BeTrue())
			Expect(manager.Swap().FreeSlots()).To(Equal(3))
		})

		It("should pick the victim with the smallest last access", func() {
			manager = MakeBuilder().
				WithPageSize(testPageSize).
				WithFrameCount(3).
				WithSwapSlotCount(4).
				Build("MMU")

			Expect(manager.Map(10, 3, false, 0)).To(Succeed())
			Expect(manager.Map(20, 1, false, 0)).To(Succeed())

			writePage(12, 0x12)
			writePage(10, 0x10)
			writePage(11, 0x11)

			writePage(20, 0x20)

			page, _ := manager.PageTable().Find(12)
			Expect(page.Present).To(BeFalse())
			for _, vpn := range []uint64{10, 11, 20} {
				page, _ := manager.PageTable().Find(vpn)
				Expect(page.Present).To(BeTrue())
			}
		})

		It("should break last-access ties toward the smaller page number",
			func() {
				Expect(manager.Map(16, 2, false, 0)).To(Succeed())
				Expect(manager.Map(30, 1, false, 0)).To(Succeed())

				writePage(16, 0xAA)
				writePage(17, 0xBB)

				for _, vpn := range []uint64{16, 17} {
					page, _ := manager.PageTable().Find(vpn)
					page.LastAccess = 99
					manager.PageTable().Update(page)
				}

				writePage(30, 0xCC)

				page, _ := manager.PageTable().Find(16)
				Expect(page.Present).To(BeFalse())
				page, _ = manager.PageTable().Find(17)
				Expect(page.Present).To(BeTrue())
			})

		It("should persist a clean anonymous page that was never swapped",
			func() {
				Expect(manager.Map(16, 2, false, 0)).To(Succeed())
				Expect(manager.Map(18, 1, false, 0)).To(Succeed())
				Expect(manager.Map(30, 1, false, 0)).To(Succeed())

				writePage(16, 0xAA)
				writePage(17, 0xBB)
				writePage(18, 0xCC) // evicts page 16 into swap

				// Reloading clears the dirty bit and frees the slot, so
				// page 16 is now resident, clean, and unmirrored.
				Expect(readPage(16)).To(Equal(fillPage(0xAA)))
				readPage(18)

				// Page 16 is the LRU victim again. Although clean, its
				// content must reach swap before the frame is reclaimed.
				writePage(30, 0xDD)

				page, _ := manager.PageTable().Find(16)
				Expect(page.Present).To(BeFalse())
				Expect(page.InSwap).To(BeTrue())

				Expect(readPage(16)).To(Equal(fillPage(0xAA)))
			})

		It("should abort with a swap error when no slot is left", func() {
			manager = MakeBuilder().
				WithPageSize(testPageSize).
				WithFrameCount(1).
				WithSwapSlotCount(0).
				Build("MMU")

			Expect(manager.Map(16, 2, false, 0)).To(Succeed())

			writePage(16, 0xAA)

			_, _, err := manager.Translate(17*testPageSize, vm.AccessWrite)

			Expect(err).To(MatchError(mem.ErrSwapFull))

			// The failed fault must leave the victim untouched.
			page, _ := manager.PageTable().Find(16)
			Expect(page.Present).To(BeTrue())
			Expect(readPage(16)).To(Equal(fillPage(0xAA)))
		})
	})

	Context("file-backed pages", func() {
		It("should load content from the backing page on fault", func() {
			content := fillPage(0x5A)
			backing.EXPECT().ReadPage(uint64(40)).Return(content, nil)

			Expect(manager.Map(16, 1, true, 40)).To(Succeed())

			Expect(readPage(16)).To(Equal(content))
		})

		It("should evict a clean file-backed page with zero I/O", func() {
			backing.EXPECT().
				ReadPage(uint64(40)).
				Return(fillPage(0x5A), nil)

			Expect(manager.Map(16, 1, true, 40)).To(Succeed())
			Expect(manager.Map(20, 2, false, 0)).To(Succeed())

			readPage(16)
			writePage(20, 0xAA)

			// The next fault evicts page 16. No WritePage call is
			// expected on the backing store, and no swap slot may be
			// consumed.
			writePage(21, 0xBB)

			page, _ := manager.PageTable().Find(16)
			Expect(page.Present).To(BeFalse())
			Expect(page.InSwap).To(BeFalse())
			Expect(manager.Swap().FreeSlots()).To(Equal(4))
		})

		It("should write a dirty file-backed page to its backing page",
			func() {
				backing.EXPECT().
					ReadPage(uint64(40)).
					Return(fillPage(0x5A), nil)
				backing.EXPECT().
					WritePage(uint64(40), fillPage(0xEE)).
					Return(nil)

				Expect(manager.Map(16, 1, true, 40)).To(Succeed())
				Expect(manager.Map(20, 2, false, 0)).To(Succeed())

				writePage(16, 0xEE)
				writePage(20, 0xAA)
				writePage(21, 0xBB)

				page, _ := manager.PageTable().Find(16)
				Expect(page.Present).To(BeFalse())
				Expect(page.InSwap).To(BeFalse())
			})
	})

	Context("unmapping", func() {
		It("should return frames and slots to their pre-map counts", func() {
			Expect(manager.Map(16, 2, false, 0)).To(Succeed())
			Expect(manager.Map(18, 1, false, 0)).To(Succeed())

			writePage(16, 0xAA)
			writePage(17, 0xBB)
			writePage(18, 0xCC) // evicts page 16 into swap

			Expect(manager.Unmap(16, 3)).To(Succeed())

			Expect(manager.Frames().FreeCount()).To(Equal(2))
			Expect(manager.Swap().FreeSlots()).To(Equal(4))
			_, found := manager.PageTable().Find(16)
			Expect(found).To(BeFalse())
		})

		It("should flush a dirty file-backed page on unmap", func() {
			backing.EXPECT().
				ReadPage(uint64(40)).
				Return(fillPage(0x5A), nil)
			backing.EXPECT().
				WritePage(uint64(40), fillPage(0xEE)).
				Return(nil)

			Expect(manager.Map(16, 1, true, 40)).To(Succeed())
			writePage(16, 0xEE)

			Expect(manager.Unmap(16, 1)).To(Succeed())
		})

		It("should not write back a clean file-backed page on unmap",
			func() {
				backing.EXPECT().
					ReadPage(uint64(40)).
					Return(fillPage(0x5A), nil)

				Expect(manager.Map(16, 1, true, 40)).To(Succeed())
				readPage(16)

				Expect(manager.Unmap(16, 1)).To(Succeed())
			})

		It("should treat unmapping a never-touched page as removal only",
			func() {
				Expect(manager.Map(16, 2, false, 0)).To(Succeed())

				Expect(manager.Unmap(16, 2)).To(Succeed())

				Expect(manager.Frames().FreeCount()).To(Equal(2))
				_, found := manager.PageTable().Find(17)
				Expect(found).To(BeFalse())
			})
	})
})
