package tracing

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"

	"github.com/SecOpsGit/EXEgesis/sim"
)

var _ = Describe("CSVTracer", func() {
	var (
		mockCtrl    *gomock.Controller
		cycleTeller *MockCycleTeller
		path        string
		tracer      *CSVTracer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		cycleTeller = NewMockCycleTeller(mockCtrl)
		path = filepath.Join(GinkgoT().TempDir(), "trace")
		tracer = NewCSVTracer(cycleTeller, path)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should write one row per completed task", func() {
		cycleTeller.EXPECT().CurrentCycle().Return(sim.VCycle(3))
		tracer.StartTask(Task{
			ID:    "uop-1",
			Kind:  "uop",
			What:  "ADD",
			Where: "CPU.ROB",
		})
		cycleTeller.EXPECT().CurrentCycle().Return(sim.VCycle(9))
		tracer.EndTask(Task{ID: "uop-1"})

		tracer.Flush()

		content, err := os.ReadFile(path + ".csv")
		Expect(err).ToNot(HaveOccurred())
		Expect(string(content)).To(
			ContainSubstring("uop-1, , uop, ADD, CPU.ROB, 3, 9"))
	})

	It("should refuse to overwrite an existing trace file", func() {
		Expect(func() {
			NewCSVTracer(cycleTeller, path)
		}).To(Panic())
	})
})
