package q15

import (
	"math"
	"testing"

	. "github.com/onsi/gomega"
)

func TestLog2_Exact(t *testing.T) {
	g := NewWithT(t)

	g.Expect(Log2(0)).To(BeZero())
	g.Expect(Log2(1)).To(BeZero())
	g.Expect(Log2(2)).To(Equal(Fixed(One)))
	g.Expect(Log2(1 << 20)).To(Equal(Fixed(20 * One)))
	g.Expect(Log2(1 << 62)).To(Equal(Fixed(62 * One)))
}

func TestLog2_Accuracy(t *testing.T) {
	for _, x := range []int64{3, 5, 7, 100, 1000, 12345, 1 << 17, 987654321, math.MaxInt64} {
		got := Log2(x).Float()
		want := math.Log2(float64(x))
		if math.Abs(got-want) > 2e-3 {
			t.Errorf("Log2(%d) = %v, want %v", x, got, want)
		}
	}
}

func TestLog2_Monotonic(t *testing.T) {
	prev := Log2(1)
	for x := int64(2); x < 1<<17; x++ {
		cur := Log2(x)
		if cur < prev {
			t.Fatalf("Log2 decreased at %d: %d < %d", x, cur, prev)
		}
		if frac := cur & (One - 1); frac < 0 || frac >= One {
			t.Fatalf("fractional part out of range at %d: %d", x, frac)
		}
		prev = cur
	}
}

func TestLnRatio(t *testing.T) {
	g := NewWithT(t)

	g.Expect(LnRatio(100, 100)).To(BeZero())
	g.Expect(LnRatio(0, 0)).To(BeZero())
	g.Expect(LnRatio(1000, 10).Float()).To(BeNumerically("~", math.Log(100), 5e-3))
	g.Expect(LnRatio(10, 1000).Float()).To(BeNumerically("~", -math.Log(100), 5e-3))
}
