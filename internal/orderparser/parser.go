// Package orderparser turns free-text customer order messages (Bengali,
// English or a mix of both) into structured order fields. Parsing is best
// effort: anything that cannot be determined is left empty for manual
// correction, and the parser never fails.
package orderparser

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mamadbah2/packwrap/internal/domain/models"
)

type field int

const (
	fieldNone field = iota
	fieldName
	fieldPhone
	fieldAddress
	fieldSize
	fieldQuantity
)

const (
	maxNameWords      = 4
	minAddressLength  = 8
	totalLookahead    = 2
	minPartialPhone   = 10
	minPhoneForSearch = 6
)

func labelPattern(words ...string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)^(?:(?:customer|কাস্টমার)\s+)?(?:` + strings.Join(words, "|") +
		`)(?:\s*(?:no\.?|number|নং|নম্বর|নাম্বার))?\s*[:：=\-–]+\s*(.*)$`)
}

var (
	labels = []struct {
		field field
		re    *regexp.Regexp
	}{
		{fieldPhone, labelPattern(`mobile`, `mob`, `phone`, `cell`, `contact`, `number`, `whatsapp`, `মোবাইল`, `ফোন`, `নম্বর`, `নাম্বার`)},
		{fieldName, labelPattern(`name`, `nam`, `customer`, `নাম`, `কাস্টমার`)},
		{fieldAddress, labelPattern(`address`, `addr`, `add`, `location`, `ঠিকানা`, `এড্রেস`)},
		{fieldSize, labelPattern(`size`, `spec`, `product`, `item`, `সাইজ`, `মাপ`)},
		{fieldQuantity, labelPattern(`qty`, `quantity`, `pieces`, `piece`, `pcs`, `পরিমাণ`, `পিস`)},
	}

	// inlineLabelRe finds a second label on the same line, e.g. "Name: X Phone: Y".
	inlineLabelRe = regexp.MustCompile(`(?i)[\s,;|]+(?:name|phone|mobile|address|size|qty|total|নাম|মোবাইল|ঠিকানা|সাইজ)\s*[:：]`)

	phoneCandidateRe = regexp.MustCompile(`\+?\d[\d\s\-]{7,}\d`)
	bdMobileRe       = regexp.MustCompile(`^01[3-9]\d{8}$`)
	bdMobileFindRe   = regexp.MustCompile(`01[3-9]\d{8}`)

	totalRe = regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:grand\s+total|total|cod|bill|টোটাল|সর্বমোট|মোট|বিল)(?:[^\p{L}\p{M}\p{N}]|$)`)

	dimensionRe = regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*(?:[*xX×/]|\sby\s)\s*\d+`)
	unitCountRe = regexp.MustCompile(`(?i)(\d+)\s*(?:pieces|piece|pcs|pc|পিস|পিচ|টি|টা)(?:[^\p{L}\p{M}]|$)`)
	colorRe     = regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:white|black|red|blue|green|yellow|pink|purple|brown|silver|golden|gold|grey|gray|orange|transparent|clear|printed|print|plain|সাদা|কালো|লাল|নীল|সবুজ|হলুদ|গোলাপি|প্রিন্ট|খাকি)(?:[^\p{L}\p{M}]|$)`)
	addressyRe  = regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:road|rd|house|holding|flat|para|village|vill|post|thana|upazila|district|sector|block|lane|avenue|bazar|dhaka|বাড়ি|বাসা|রোড|গ্রাম|থানা|জেলা|উপজেলা|পোস্ট|ঢাকা)(?:[^\p{L}\p{M}]|$)`)
	greetingRe  = regexp.MustCompile(`(?i)^(?:hi|hello|dear|salam|assalamu|আসসালামু|সালাম|ভাই|order|অর্ডার)(?:[^\p{L}\p{M}]|$)`)

	amountRe   = regexp.MustCompile(`(?i)^(?:tk\.?|৳|bdt)?\s*(\d[\d,]*(?:\.\d+)?)\s*(?:tk\.?|taka|bdt|৳|টাকা|/-|/=)?\s*$`)
	exprTailRe = regexp.MustCompile(`[\d\s+\-*/().,]+$`)
	integerRe  = regexp.MustCompile(`\d+`)
)

type line struct {
	text    string
	claimed field
}

// Parse extracts name, phone, address, size, piece count and COD amount from
// a customer message. It is pure and deterministic.
func Parse(text string) (out models.ParsedOrder) {
	defer func() {
		// A heuristic slip must degrade to an empty result, never fail the caller.
		if r := recover(); r != nil {
			out = models.ParsedOrder{Raw: text}
		}
	}()

	p := newParser(NormalizeDigits(text))
	out = models.ParsedOrder{
		Raw:   text,
		Phone: p.phone(),
	}
	out.CODAmount = p.codAmount()
	out.Name = p.name(out.Phone)
	out.Size = p.size(out.Phone)
	out.Pieces = p.pieces()
	out.Address = p.address(out.Phone, out.Name)
	return out
}

type parser struct {
	lines    []line
	labelled map[field]string
}

func newParser(text string) *parser {
	p := &parser{labelled: make(map[field]string)}
	for _, l := range splitLines(text) {
		ln := line{text: l}
		for _, lb := range labels {
			m := lb.re.FindStringSubmatch(l)
			if m == nil {
				continue
			}
			ln.claimed = lb.field
			if _, seen := p.labelled[lb.field]; !seen {
				p.labelled[lb.field] = cutInlineLabel(m[1])
			}
			break
		}
		p.lines = append(p.lines, ln)
	}
	return p
}

func cutInlineLabel(value string) string {
	if loc := inlineLabelRe.FindStringIndex(value); loc != nil && loc[0] > 0 {
		value = value[:loc[0]]
	}
	return strings.TrimSpace(strings.Trim(value, " ,;|"))
}

func (p *parser) phone() string {
	if v, ok := p.labelled[fieldPhone]; ok {
		if phone := extractPhone(v); phone != "" {
			return phone
		}
	}

	partial := ""
	for _, l := range p.lines {
		for _, candidate := range phoneCandidateRe.FindAllString(l.text, -1) {
			digits := onlyDigits(candidate)
			if phone, ok := normalizePhone(digits); ok {
				return phone
			}
			if partial == "" && len(digits) >= minPartialPhone {
				partial = digits
			}
		}
	}
	return partial
}

func extractPhone(value string) string {
	digits := onlyDigits(value)
	if digits == "" {
		return ""
	}
	phone, _ := normalizePhone(digits)
	return phone
}

// normalizePhone reduces a Bangladeshi mobile number to its 11-digit local
// form. When the digits are not recognisable it returns them unchanged with
// ok=false.
func normalizePhone(digits string) (string, bool) {
	d := digits
	switch {
	case strings.HasPrefix(d, "00880"):
		d = d[4:]
	case strings.HasPrefix(d, "880"):
		d = d[2:]
	case len(d) == 10 && d[0] == '1':
		d = "0" + d
	}
	if bdMobileRe.MatchString(d) {
		return d, true
	}
	if m := bdMobileFindRe.FindString(digits); m != "" {
		return m, true
	}
	return digits, false
}

func containsPhone(text, phone string) bool {
	if len(phone) < minPhoneForSearch {
		return false
	}
	digits := onlyDigits(text)
	if strings.Contains(digits, phone) {
		return true
	}
	return len(phone) == 11 && strings.Contains(digits, phone[1:])
}

func isTotalLine(text string) bool {
	return totalRe.MatchString(text)
}

func isAddressy(text string) bool {
	return addressyRe.MatchString(text)
}

func hasUnitCount(text string) bool {
	return unitCountRe.MatchString(text)
}

// isSizeLike reports whether a line describes the product: a dimension such
// as 12*16 or 10/14, a color/print word on a short line, or a piece count.
func isSizeLike(text, phone string) bool {
	if isTotalLine(text) || strings.Contains(text, "=") || containsPhone(text, phone) {
		return false
	}
	if isAddressy(text) {
		return false
	}
	if dimensionRe.MatchString(text) || hasUnitCount(text) {
		return true
	}
	if colorRe.MatchString(text) {
		return !strings.Contains(text, ",") && len(strings.Fields(text)) <= maxNameWords
	}
	return false
}

func (p *parser) name(phone string) string {
	if v := p.labelled[fieldName]; v != "" {
		return v
	}

	for _, l := range p.lines {
		if l.claimed != fieldNone {
			continue
		}
		t := l.text
		if containsPhone(t, phone) || isTotalLine(t) || isSizeLike(t, phone) || hasUnitCount(t) {
			continue
		}
		if hasDigit(t) || isAddressy(t) || greetingRe.MatchString(t) {
			continue
		}
		words := strings.Fields(t)
		if len(words) == 0 || len(words) > maxNameWords {
			continue
		}
		if looksAlphabetic(t) {
			return strings.Trim(t, " ,.;:-")
		}
	}
	return ""
}

func looksAlphabetic(s string) bool {
	var letters, other int
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.Is(unicode.M, r):
			letters++
		case unicode.IsSpace(r) || r == '.' || r == '-' || r == '\'':
		default:
			other++
		}
	}
	return letters >= 2 && other == 0
}

func (p *parser) address(phone, name string) string {
	if v := p.labelled[fieldAddress]; v != "" {
		return v
	}

	best := ""
	for _, l := range p.lines {
		if l.claimed != fieldNone {
			continue
		}
		t := l.text
		if t == name || strings.Trim(t, " ,.;:-") == name {
			continue
		}
		if containsPhone(t, phone) || isTotalLine(t) || isSizeLike(t, phone) {
			continue
		}
		if utf8.RuneCountInString(t) < minAddressLength {
			continue
		}
		if utf8.RuneCountInString(t) > utf8.RuneCountInString(best) {
			best = t
		}
	}
	return best
}

func (p *parser) size(phone string) string {
	if v := p.labelled[fieldSize]; v != "" {
		return v
	}

	var parts []string
	for _, l := range p.lines {
		if l.claimed != fieldNone && l.claimed != fieldQuantity {
			continue
		}
		if isSizeLike(l.text, phone) {
			parts = append(parts, l.text)
		}
	}
	return strings.Join(parts, ", ")
}

func (p *parser) pieces() *int {
	if v, ok := p.labelled[fieldQuantity]; ok {
		if m := integerRe.FindString(v); m != "" {
			if n, err := strconv.Atoi(m); err == nil {
				return &n
			}
		}
	}

	for _, l := range p.lines {
		if dimensionRe.MatchString(l.text) {
			continue
		}
		if m := unitCountRe.FindStringSubmatch(l.text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return &n
			}
		}
	}

	sum, found := 0, false
	for _, l := range p.lines {
		if !dimensionRe.MatchString(l.text) || isTotalLine(l.text) {
			continue
		}
		for _, m := range unitCountRe.FindAllStringSubmatch(l.text, -1) {
			if n, err := strconv.Atoi(m[1]); err == nil {
				sum += n
				found = true
			}
		}
	}
	if found {
		return &sum
	}
	return nil
}

func (p *parser) codAmount() *float64 {
	for i, l := range p.lines {
		if !isTotalLine(l.text) {
			continue
		}
		t := trimTakaSuffix(l.text)

		eq := strings.LastIndex(t, "=")
		if eq >= 0 {
			if v, ok := parseAmount(t[eq+1:]); ok {
				return &v
			}
		} else if v, ok := parseAmount(totalValue(t)); ok {
			return &v
		}

		for j := i + 1; j < len(p.lines) && j <= i+totalLookahead; j++ {
			if v, ok := parseAmount(p.lines[j].text); ok {
				return &v
			}
		}

		src := totalValue(t)
		if eq >= 0 {
			src = t[:eq]
		}
		if v, ok := evalTotal(src); ok {
			return &v
		}
	}
	return nil
}

// trimTakaSuffix drops a trailing "/=" or "/-" so its "=" is not read as the
// total's equals sign.
func trimTakaSuffix(text string) string {
	t := strings.TrimSpace(text)
	for _, suffix := range []string{"/=", "/-"} {
		if strings.HasSuffix(t, suffix) {
			return strings.TrimSpace(strings.TrimSuffix(t, suffix))
		}
	}
	return t
}

// totalValue returns the text after the total keyword.
func totalValue(text string) string {
	loc := totalRe.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	return strings.TrimLeft(text[loc[1]:], " :：-–")
}

func parseAmount(s string) (float64, bool) {
	m := amountRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func evalTotal(src string) (float64, bool) {
	expr := exprTailRe.FindString(src)
	expr = strings.TrimLeftFunc(expr, func(r rune) bool {
		return r != '(' && !unicode.IsDigit(r)
	})
	expr = strings.ReplaceAll(strings.TrimSpace(expr), ",", "")
	if !strings.ContainsAny(expr, "+-*/") {
		return 0, false
	}
	v, err := evalArithmetic(expr)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
