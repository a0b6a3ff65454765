package onboarding

import "ainastudio/pkg/domain"

// StylePreset is one of the fixed composition styles generated per round.
type StylePreset struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Instruction string `json:"-"`
}

// StylePresets are generated in this order every calibration round.
var StylePresets = []StylePreset{
	{
		Key:   "closeup",
		Label: "Gros plan produit",
		Instruction: "Composition: tight close-up of the main product, shallow depth of field, " +
			"soft natural light, the product fills most of the frame.",
	},
	{
		Key:   "ambiance",
		Label: "Ambiance du lieu",
		Instruction: "Composition: wide shot of the venue interior, warm welcoming atmosphere, " +
			"customers suggested but not in focus, golden hour lighting.",
	},
	{
		Key:   "action",
		Label: "En préparation",
		Instruction: "Composition: hands at work preparing the product, dynamic angle, " +
			"visible motion and craft, authentic behind-the-scenes feel.",
	},
	{
		Key:   "flatlay",
		Label: "Flat lay stylisé",
		Instruction: "Composition: top-down flat lay on a textured surface, carefully arranged " +
			"props, clean negative space, editorial styling.",
	},
}

var suggestedPrompts = map[domain.BusinessType][]string{
	domain.BusinessRestaurant: {
		"Notre plat signature dressé à l'assiette",
		"Nouveau plat du jour",
		"Une table dressée pour le service du soir",
	},
	domain.BusinessBar: {
		"Un cocktail maison au comptoir",
		"L'happy hour entre amis",
		"Notre sélection de bières pression",
	},
	domain.BusinessBakery: {
		"Les viennoiseries du matin sorties du four",
		"Notre pain au levain",
		"La vitrine de pâtisseries du week-end",
	},
	domain.BusinessHairdresser: {
		"Une coupe tendance réalisée au salon",
		"Le salon prêt à accueillir les clients",
		"Nos produits de soin en vitrine",
	},
	domain.BusinessBoutique: {
		"La nouvelle collection en vitrine",
		"Un article coup de cœur mis en scène",
		"L'intérieur de la boutique",
	},
}

var genericPrompts = []string{
	"Notre produit phare mis en valeur",
	"L'équipe au travail",
	"Une nouveauté à découvrir cette semaine",
}

// SuggestedPromptsFor returns the starter descriptions for a business type,
// falling back to a generic set.
func SuggestedPromptsFor(t domain.BusinessType) []string {
	if prompts, ok := suggestedPrompts[t]; ok {
		return append([]string{}, prompts...)
	}
	return append([]string{}, genericPrompts...)
}
