package shopping

import "strings"

// CategoryOther is the fallback for items no rule recognizes.
const CategoryOther = "Other"

// Categorize returns the store section for an item name. Matching is
// case-insensitive: exact name first, then keyword substring. Items the
// rules don't know land in CategoryOther.
func Categorize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return CategoryOther
	}
	if cat, ok := exactNames[n]; ok {
		return cat
	}
	for _, r := range keywordRules {
		if strings.Contains(n, r.keyword) {
			return r.category
		}
	}
	return CategoryOther
}

// exactNames is built from per-category word lists so plural and singular
// forms can sit next to each other without repeating the category.
var exactNames = buildExactNames(map[string][]string{
	"Produce": {
		"apple", "apples", "banana", "bananas", "orange", "oranges",
		"lemon", "lemons", "lime", "limes", "avocado", "avocados",
		"tomato", "tomatoes", "potato", "potatoes", "onion", "onions",
		"garlic", "ginger", "lettuce", "spinach", "kale", "broccoli",
		"cauliflower", "carrots", "celery", "cucumber", "zucchini",
		"mushrooms", "peppers", "corn", "grapes", "strawberries",
		"blueberries", "cilantro", "basil", "parsley", "green beans",
	},
	"Dairy": {
		"milk", "eggs", "butter", "cheese", "yogurt", "cream cheese",
		"sour cream", "heavy cream", "half and half",
	},
	"Meat & Seafood": {
		"chicken", "beef", "pork", "turkey", "bacon", "sausage", "ham",
		"steak", "salmon", "shrimp", "tuna", "fish", "ground beef",
		"ground turkey", "lamb",
	},
	"Bakery": {
		"bread", "bagels", "tortillas", "rolls", "buns", "pita",
	},
	"Pantry": {
		"rice", "pasta", "flour", "sugar", "salt", "pepper", "oil",
		"olive oil", "vinegar", "soy sauce", "honey", "peanut butter",
		"cereal", "oatmeal", "broth", "beans", "lentils", "noodles",
		"salsa",
	},
	"Frozen": {
		"ice cream", "frozen pizza", "frozen veggies", "frozen fruit",
	},
	"Beverages": {
		"water", "juice", "coffee", "tea", "soda", "beer", "wine",
		"sparkling water",
	},
	"Snacks": {
		"chips", "crackers", "cookies", "popcorn", "pretzels", "candy",
		"chocolate",
	},
	"Household": {
		"paper towels", "toilet paper", "trash bags", "dish soap",
		"aluminum foil", "napkins", "sponges",
	},
})

func buildExactNames(byCategory map[string][]string) map[string]string {
	out := make(map[string]string)
	for cat, names := range byCategory {
		for _, n := range names {
			out[n] = cat
		}
	}
	return out
}

type keywordRule struct {
	keyword  string
	category string
}

// Ordered with longer, more specific keywords first so "cream cheese" wins
// over "cream".
var keywordRules = []keywordRule{
	{"chicken breast", "Meat & Seafood"},
	{"chicken thigh", "Meat & Seafood"},
	{"ground beef", "Meat & Seafood"},
	{"ground turkey", "Meat & Seafood"},
	{"pork chop", "Meat & Seafood"},

	{"cream cheese", "Dairy"},
	{"sour cream", "Dairy"},
	{"heavy cream", "Dairy"},
	{"greek yogurt", "Dairy"},
	{"almond milk", "Dairy"},
	{"oat milk", "Dairy"},
	{"yogurt", "Dairy"},
	{"cheese", "Dairy"},
	{"milk", "Dairy"},
	{"butter", "Dairy"},
	{"cream", "Dairy"},
	{"egg", "Dairy"},

	{"baby spinach", "Produce"},
	{"green onion", "Produce"},
	{"sweet potato", "Produce"},
	{"bell pepper", "Produce"},
	{"cherry tomato", "Produce"},
	{"berries", "Produce"},
	{"berry", "Produce"},
	{"lettuce", "Produce"},
	{"spinach", "Produce"},
	{"apple", "Produce"},
	{"banana", "Produce"},
	{"tomato", "Produce"},
	{"potato", "Produce"},
	{"onion", "Produce"},
	{"pepper", "Produce"},
	{"carrot", "Produce"},
	{"squash", "Produce"},
	{"herb", "Produce"},

	{"sourdough", "Bakery"},
	{"whole wheat", "Bakery"},
	{"bread", "Bakery"},
	{"bagel", "Bakery"},
	{"tortilla", "Bakery"},
	{"bun", "Bakery"},
	{"roll", "Bakery"},

	{"peanut butter", "Pantry"},
	{"olive oil", "Pantry"},
	{"soy sauce", "Pantry"},
	{"pasta sauce", "Pantry"},
	{"tomato sauce", "Pantry"},
	{"canned", "Pantry"},
	{"cereal", "Pantry"},
	{"granola", "Pantry"},
	{"rice", "Pantry"},
	{"pasta", "Pantry"},
	{"noodle", "Pantry"},
	{"flour", "Pantry"},
	{"sugar", "Pantry"},
	{"spice", "Pantry"},
	{"seasoning", "Pantry"},
	{"sauce", "Pantry"},
	{"broth", "Pantry"},
	{"stock", "Pantry"},
	{"bean", "Pantry"},
	{"lentil", "Pantry"},

	{"ice cream", "Frozen"},
	{"frozen", "Frozen"},

	{"sparkling water", "Beverages"},
	{"coffee", "Beverages"},
	{"juice", "Beverages"},
	{"soda", "Beverages"},
	{"water", "Beverages"},
	{"wine", "Beverages"},

	{"chip", "Snacks"},
	{"cracker", "Snacks"},
	{"cookie", "Snacks"},
	{"popcorn", "Snacks"},
	{"pretzel", "Snacks"},
	{"chocolate", "Snacks"},
	{"snack", "Snacks"},

	{"paper towel", "Household"},
	{"toilet paper", "Household"},
	{"trash bag", "Household"},
	{"dish soap", "Household"},
	{"detergent", "Household"},
	{"foil", "Household"},
	{"sponge", "Household"},
}
