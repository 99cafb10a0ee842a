// Package seed holds the curriculum reference data loaded into a fresh
// gateway: the troisième-level theme catalogue, the badge catalogue, and the
// exercise bank.
package seed

import "github.com/mathmaster/mathmaster-go/internal/model"

// Themes returns the theme catalogue in display order.
func Themes() []model.Theme {
	return []model.Theme{
		{
			ID:          "calcul-numerique",
			Title:       "Calcul numérique",
			Icon:        "calculator",
			Description: "Travail sur les opérations, les nombres relatifs, les fractions et les puissances.",
			OrderIndex:  1,
		},
		{
			ID:          "calcul-litteral",
			Title:       "Calcul littéral",
			Icon:        "superscript",
			Description: "Manipuler des expressions avec des lettres : réduction, développement, factorisation.",
			OrderIndex:  2,
		},
		{
			ID:          "equations",
			Title:       "Équations",
			Icon:        "equals",
			Description: "Résoudre des équations du premier degré et des problèmes s'y ramenant.",
			OrderIndex:  3,
		},
		{
			ID:          "fonctions",
			Title:       "Fonctions",
			Icon:        "chart-line",
			Description: "Notion de fonction, fonctions linéaires et affines, représentations graphiques.",
			OrderIndex:  4,
		},
		{
			ID:          "statistiques",
			Title:       "Statistiques",
			Icon:        "chart-bar",
			Description: "Moyennes, médianes, étendues et interprétation de séries statistiques.",
			OrderIndex:  5,
		},
		{
			ID:          "probabilites",
			Title:       "Probabilités",
			Icon:        "dice",
			Description: "Calculer des probabilités dans des situations d'équiprobabilité.",
			OrderIndex:  6,
		},
		{
			ID:          "pythagore",
			Title:       "Pythagore",
			Icon:        "ruler-combined",
			Description: "Théorème de Pythagore et ses applications en géométrie.",
			OrderIndex:  7,
		},
		{
			ID:          "thales",
			Title:       "Thalès",
			Icon:        "draw-polygon",
			Description: "Théorème de Thalès, agrandissements et réductions.",
			OrderIndex:  8,
		},
		{
			ID:          "trigonometrie",
			Title:       "Trigonométrie",
			Icon:        "wave-square",
			Description: "Cosinus, sinus et tangente dans le triangle rectangle.",
			OrderIndex:  9,
		},
		{
			ID:          "geometrie-espace",
			Title:       "Géométrie dans l'espace",
			Icon:        "cube",
			Description: "Solides usuels, sections et calculs de volumes.",
			OrderIndex:  10,
		},
	}
}

// Badges returns the badge catalogue.
func Badges() []model.Badge {
	return []model.Badge{
		{ID: "debutant", Name: "Débutant", Description: "Terminer son premier exercice.", Icon: "medal"},
		{ID: "rapide", Name: "Rapide", Description: "Terminer un exercice en moins de la moitié du temps prévu.", Icon: "bolt"},
		{ID: "precis", Name: "Précis", Description: "Réussir un exercice sans aucune erreur.", Icon: "bullseye"},
		{ID: "expert", Name: "Expert", Description: "Maîtriser un thème à 80% ou plus.", Icon: "trophy"},
	}
}

// Exercises returns the exercise bank, ordered within each theme.
func Exercises() []model.Exercise {
	return []model.Exercise{
		{
			ID:         "ex-calc-num-1",
			ThemeID:    "calcul-numerique",
			Title:      "Calculer des expressions numériques",
			Difficulty: "Facile",
			Duration:   5,
			OrderIndex: 1,
		},
		{
			ID:         "ex-calc-num-2",
			ThemeID:    "calcul-numerique",
			Title:      "Opérations sur les fractions",
			Difficulty: "Moyenne",
			Duration:   10,
			OrderIndex: 2,
		},
		{
			ID:         "ex-calc-lit-1",
			ThemeID:    "calcul-litteral",
			Title:      "Développer des expressions",
			Difficulty: "Moyenne",
			Duration:   8,
			OrderIndex: 1,
		},
		{
			ID:         "ex-calc-lit-2",
			ThemeID:    "calcul-litteral",
			Title:      "Factoriser des expressions",
			Difficulty: "Difficile",
			Duration:   10,
			OrderIndex: 2,
		},
		{
			ID:         "ex-pythagore-1",
			ThemeID:    "pythagore",
			Title:      "Calculer des longueurs",
			Difficulty: "Facile",
			Duration:   5,
			OrderIndex: 1,
		},
		{
			ID:         "ex-pythagore-2",
			ThemeID:    "pythagore",
			Title:      "Vérifier si un triangle est rectangle",
			Difficulty: "Moyenne",
			Duration:   8,
			OrderIndex: 2,
		},
	}
}
