package orderparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/packwrap/internal/domain/models"
)

func TestParse_LabelledMessage(t *testing.T) {
	text := "Name: Karim\nPhone: 01711223344\nAddress: 12 Green Road, Dhaka\nSize: 10/14+2 White\nAmount: 5 pcs\nTotal: 5*50=250"

	got := Parse(text)

	assert.Equal(t, "Karim", got.Name)
	assert.Equal(t, "01711223344", got.Phone)
	assert.Contains(t, got.Address, "Green Road")
	assert.Equal(t, "10/14+2 White", got.Size)
	require.NotNil(t, got.Pieces)
	assert.Equal(t, 5, *got.Pieces)
	require.NotNil(t, got.CODAmount)
	assert.Equal(t, 250.0, *got.CODAmount)
	assert.Equal(t, text, got.Raw)
	assert.Empty(t, got.Missing())
}

func TestParse_UnlabelledMessage(t *testing.T) {
	text := "Karim Uddin\n01711-223344\nHouse 5, Road 3, Mirpur 10, Dhaka\n10/14 white 100 pcs\nTotal 100*2.5 = 250"

	got := Parse(text)

	assert.Equal(t, "Karim Uddin", got.Name)
	assert.Equal(t, "01711223344", got.Phone)
	assert.Equal(t, "House 5, Road 3, Mirpur 10, Dhaka", got.Address)
	assert.Equal(t, "10/14 white 100 pcs", got.Size)
	require.NotNil(t, got.Pieces)
	assert.Equal(t, 100, *got.Pieces)
	require.NotNil(t, got.CODAmount)
	assert.Equal(t, 250.0, *got.CODAmount)
}

func TestParse_BengaliDigitsMatchASCII(t *testing.T) {
	bengali := "নাম: করিম\nমোবাইল: ০১৭১১২২৩৩৪৪\nঠিকানা: ১২ গ্রীন রোড, ঢাকা\nসাইজ: ১০/১৪ সাদা\n৫ পিস\nমোট = ২৫০ টাকা"
	ascii := "নাম: করিম\nমোবাইল: 01711223344\nঠিকানা: 12 গ্রীন রোড, ঢাকা\nসাইজ: 10/14 সাদা\n5 পিস\nমোট = 250 টাকা"

	b := Parse(bengali)
	a := Parse(ascii)

	assert.Equal(t, "01711223344", b.Phone)
	require.NotNil(t, b.Pieces)
	assert.Equal(t, 5, *b.Pieces)
	require.NotNil(t, b.CODAmount)
	assert.Equal(t, 250.0, *b.CODAmount)

	b.Raw, a.Raw = "", ""
	assert.Equal(t, a, b)
}

func TestParse_PhoneVariants(t *testing.T) {
	cases := map[string]string{
		"call me +8801711223344":     "01711223344",
		"8801811223344 please":       "01811223344",
		"mobile: 0088 01911 223344":  "01911223344",
		"1611223344":                 "01611223344",
		"Phone: 017-1122-3344":       "01711223344",
		"Phone: 12345":               "12345",
		"ref 2024-10-05 only a date": "",
	}

	for input, want := range cases {
		t.Run(input, func(t *testing.T) {
			assert.Equal(t, want, Parse(input).Phone)
		})
	}
}

func TestParse_CODFallbacks(t *testing.T) {
	t.Run("next line amount", func(t *testing.T) {
		got := Parse("Total:\n1,250 tk")
		require.NotNil(t, got.CODAmount)
		assert.Equal(t, 1250.0, *got.CODAmount)
	})

	t.Run("evaluates expression when right side missing", func(t *testing.T) {
		got := Parse("Total: (2*100)+50 =")
		require.NotNil(t, got.CODAmount)
		assert.Equal(t, 250.0, *got.CODAmount)
	})

	t.Run("currency suffix and separators", func(t *testing.T) {
		got := Parse("Total = 2,500/-")
		require.NotNil(t, got.CODAmount)
		assert.Equal(t, 2500.0, *got.CODAmount)
	})

	t.Run("equals sign taka suffix", func(t *testing.T) {
		for in, want := range map[string]float64{
			"Total = 1250/=":      1250,
			"Total: 5*50 = 250/=": 250,
			"মোট = ২৫০/=":         250,
			"Total: 640/=":        640,
			"Total = 1,250/-":     1250,
			"Total\n250/=":        250,
		} {
			got := Parse(in)
			require.NotNil(t, got.CODAmount, in)
			assert.Equal(t, want, *got.CODAmount, in)
		}
	})

	t.Run("cod label", func(t *testing.T) {
		got := Parse("COD: 980 taka")
		require.NotNil(t, got.CODAmount)
		assert.Equal(t, 980.0, *got.CODAmount)
	})

	t.Run("rejects unsafe expression", func(t *testing.T) {
		got := Parse("Total: alert(1) =")
		assert.Nil(t, got.CODAmount)
	})

	t.Run("division by zero", func(t *testing.T) {
		got := Parse("Total: 5/0 =")
		assert.Nil(t, got.CODAmount)
	})
}

func TestParse_PiecesSumAcrossSizeLines(t *testing.T) {
	got := Parse("Rahim\n10/14 white 100 pcs\n12/16 black 50 pcs\n01711223344")

	require.NotNil(t, got.Pieces)
	assert.Equal(t, 150, *got.Pieces)
	assert.Equal(t, "10/14 white 100 pcs, 12/16 black 50 pcs", got.Size)
	assert.Equal(t, "Rahim", got.Name)
}

func TestParse_InlineLabels(t *testing.T) {
	got := Parse("Name: Sumi Akter, Phone: 01511223344\nAddress: Uttara Sector 7, Dhaka")

	assert.Equal(t, "Sumi Akter", got.Name)
	assert.Equal(t, "01511223344", got.Phone)
	assert.Equal(t, "Uttara Sector 7, Dhaka", got.Address)
}

func TestParse_GarbledInputNeverFails(t *testing.T) {
	inputs := []string{
		"",
		"???\n\n!!!",
		"====\n((((\n))))",
		"Total: ((((((((((((((((((((((((((((((((((((((1))))))))))))))))))))))))))))))))))))) =",
		"\x00\xff\xfe",
		"= = = total = = =",
	}

	for _, in := range inputs {
		assert.NotPanics(t, func() {
			got := Parse(in)
			assert.Equal(t, in, got.Raw)
		})
	}

	got := Parse("???\n\n!!!")
	assert.Equal(t, models.ParsedOrder{Raw: "???\n\n!!!"}, got)
}

func TestParse_Deterministic(t *testing.T) {
	text := "Karim Uddin\n01711-223344\nHouse 5, Road 3, Mirpur 10, Dhaka\n10/14 white 100 pcs\nTotal 100*2.5 = 250"
	assert.Equal(t, Parse(text), Parse(text))
}

func TestParse_ReparseKeepsResolvedFields(t *testing.T) {
	inputs := []string{
		"Name: Karim\nPhone: 01711223344\nAddress: 12 Green Road, Dhaka\nSize: 10/14+2 White\nAmount: 5 pcs\nTotal: 5*50=250",
		"Karim Uddin\n01711-223344\nHouse 5, Road 3, Mirpur 10, Dhaka\n10/14 white 100 pcs\nTotal 100*2.5 = 250",
		"Rahim\n10/14 white 100 pcs\n12/16 black 50 pcs\n01711223344",
	}

	for _, in := range inputs {
		first := Parse(in)
		second := Parse(first.Text())

		first.Raw, second.Raw = "", ""
		assert.Equal(t, first, second, "reparse of %q", in)
	}
}

func TestNormalizeDigits(t *testing.T) {
	assert.Equal(t, "0123456789", NormalizeDigits("০১২৩৪৫৬৭৮৯"))
	assert.Equal(t, "abc 12", NormalizeDigits("abc ১2"))
}

func TestEvalArithmetic(t *testing.T) {
	cases := map[string]float64{
		"5*50":        250,
		"(2+3)*4":     20,
		"100/4-5":     20,
		"-5+10":       5,
		"2.5*4":       10,
		" 1 + 2 * 3 ": 7,
	}
	for in, want := range cases {
		got, err := evalArithmetic(in)
		require.NoError(t, err, in)
		assert.InDelta(t, want, got, 1e-9, in)
	}

	for _, bad := range []string{"", "5*", "(1+2", "1+2)", "abc", "1..2"} {
		_, err := evalArithmetic(bad)
		assert.Error(t, err, bad)
	}
}
