package monitoring

import (
	"encoding/json"
	"net/http/httptest"

	"github.com/gorilla/mux"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vmsim/vm/addressspace"
	"github.com/sarchlab/vmsim/vm/mmu"
)

func newSampleSpace(name string) *addressspace.Comp {
	manager := mmu.MakeBuilder().
		WithPageSize(4096).
		WithFrameCount(2).
		WithSwapSlotCount(4).
		Build(name + ".MMU")

	return addressspace.MakeBuilder().
		WithMemoryManager(manager).
		Build(name)
}

var _ = Describe("Monitor", func() {
	var (
		m     *Monitor
		space *addressspace.Comp
	)

	BeforeEach(func() {
		m = NewMonitor()
		space = newSampleSpace("Space1")
		m.RegisterAddressSpace(space)
	})

	It("should list registered address spaces", func() {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/list_spaces", nil)

		m.listSpaces(w, r)

		var names []string
		Expect(json.Unmarshal(w.Body.Bytes(), &names)).To(Succeed())
		Expect(names).To(Equal([]string{"Space1"}))
	})

	It("should serve the status of a registered space", func() {
		addr, err := space.Mmap(4096, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(space.Write(addr, []byte("x"))).To(Succeed())

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/status/Space1", nil)
		r = mux.SetURLVars(r, map[string]string{"name": "Space1"})

		m.spaceStatus(w, r)

		var status addressspace.Status
		Expect(json.Unmarshal(w.Body.Bytes(), &status)).To(Succeed())
		Expect(status.Name).To(Equal("Space1"))
		Expect(status.FreeFrames).To(Equal(1))
		Expect(status.Pages).To(HaveLen(1))
	})

	It("should report frame ownership", func() {
		addr, err := space.Mmap(4096, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(space.Write(addr, []byte("x"))).To(Succeed())

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/frames/Space1", nil)
		r = mux.SetURLVars(r, map[string]string{"name": "Space1"})

		m.listFrames(w, r)

		var frames []frameRsp
		Expect(json.Unmarshal(w.Body.Bytes(), &frames)).To(Succeed())
		Expect(frames).To(HaveLen(2))
		Expect(frames[0].Free).To(BeFalse())
		Expect(frames[0].Owner).To(Equal(addr / 4096))
		Expect(frames[1].Free).To(BeTrue())
	})

	It("should answer 404 for an unknown space", func() {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/status/Nope", nil)
		r = mux.SetURLVars(r, map[string]string{"name": "Nope"})

		m.spaceStatus(w, r)

		Expect(w.Code).To(Equal(404))
	})
})
