package liar

// wordBank maps a category to its secret words.
var wordBank = map[string][]string{
	"animals": {"cat", "dog", "elephant", "giraffe", "penguin", "dolphin", "kangaroo", "owl", "tiger", "rabbit"},
	"food":    {"pizza", "sushi", "burger", "pancake", "taco", "salad", "dumpling", "lasagna", "croissant", "curry"},
	"places":  {"airport", "library", "beach", "hospital", "museum", "cinema", "stadium", "bakery", "zoo", "castle"},
	"jobs":    {"doctor", "pilot", "chef", "teacher", "firefighter", "farmer", "lawyer", "dentist", "astronaut", "plumber"},
	"sports":  {"football", "tennis", "hockey", "boxing", "surfing", "golf", "cycling", "skiing", "volleyball", "chess"},
	"objects": {"umbrella", "guitar", "candle", "mirror", "ladder", "backpack", "compass", "teapot", "scissors", "pillow"},
}

const maxDecoys = 7

func categories() []string {
	return []string{"animals", "food", "places", "jobs", "sports", "objects"}
}
