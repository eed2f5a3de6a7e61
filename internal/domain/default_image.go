package domain

// DefaultImageBaseURL hosts the placeholder images.
const DefaultImageBaseURL = "https://avatar-internship-assignment.s3.ap-south-1.amazonaws.com/"

// DefaultImageURLs are used until a real image is uploaded.
var DefaultImageURLs = []string{
	DefaultImageBaseURL + "avatar-random-1.webp",
	DefaultImageBaseURL + "avatar-random-2.webp",
}

// IntN is the part of a random source PickDefaultImage needs.
// *math/rand/v2.Rand satisfies it.
type IntN interface {
	IntN(n int) int
}

// PickDefaultImage picks one placeholder from urls using rnd.
// It returns "" when urls is empty.
func PickDefaultImage(rnd IntN, urls []string) string {
	switch len(urls) {
	case 0:
		return ""
	case 1:
		return urls[0]
	}
	return urls[rnd.IntN(len(urls))]
}
