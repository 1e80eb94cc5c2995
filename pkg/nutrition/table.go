package nutrition

// defaultEntries is the shipped table, values per 100g
var defaultEntries = []Entry{
	// Vegetables
	{Name: "tomate", Calories: 18, Protein: 0.9, Carbs: 3.9, Fat: 0.2, Fiber: 1.2, VitaminC: 14, Benefits: "Rico en licopeno, vitamina C y antioxidantes"},
	{Name: "lechuga", Calories: 15, Protein: 1.4, Carbs: 2.9, Fat: 0.2, Fiber: 1.3, VitaminC: 9, Benefits: "Alta en folato, vitamina A y baja en calorías"},
	{Name: "cebolla", Calories: 40, Protein: 1.1, Carbs: 9.3, Fat: 0.1, Fiber: 1.7, VitaminC: 7, Benefits: "Propiedades antiinflamatorias y antioxidantes"},
	{Name: "zanahoria", Calories: 41, Protein: 0.9, Carbs: 9.6, Fat: 0.2, Fiber: 2.8, VitaminC: 6, Benefits: "Rica en beta-caroteno y vitamina A"},
	{Name: "pimiento", Calories: 31, Protein: 1.0, Carbs: 7.3, Fat: 0.3, Fiber: 2.5, VitaminC: 128, Benefits: "Excelente fuente de vitamina C y antioxidantes"},
	{Name: "aguacate", Calories: 160, Protein: 2.0, Carbs: 8.5, Fat: 14.7, Fiber: 6.7, VitaminC: 10, Benefits: "Rico en grasas saludables y potasio"},

	// Meats
	{Name: "pollo", Calories: 165, Protein: 31.0, Carbs: 0, Fat: 3.6, Fiber: 0, VitaminC: 0, Benefits: "Excelente fuente de proteína magra y vitaminas B"},
	{Name: "res", Calories: 250, Protein: 26.0, Carbs: 0, Fat: 15.0, Fiber: 0, VitaminC: 0, Benefits: "Rica en proteína, hierro y vitamina B12"},
	{Name: "cerdo", Calories: 242, Protein: 27.0, Carbs: 0, Fat: 14.0, Fiber: 0, VitaminC: 0, Benefits: "Buena fuente de proteína y tiamina"},
	{Name: "pescado", Calories: 206, Protein: 22.0, Carbs: 0, Fat: 12.0, Fiber: 0, VitaminC: 0, Benefits: "Rico en omega-3 y proteína de alta calidad"},
	{Name: "jamón", Calories: 145, Protein: 21.0, Carbs: 1.5, Fat: 5.5, Fiber: 0, VitaminC: 0, Benefits: "Fuente de proteína, pero alto en sodio"},
	{Name: "salchicha", Calories: 301, Protein: 13.0, Carbs: 2.0, Fat: 27.0, Fiber: 0, VitaminC: 0, Benefits: "Procesado, consumir con moderación"},

	// Grains and legumes
	{Name: "arroz", Calories: 130, Protein: 2.7, Carbs: 28.0, Fat: 0.3, Fiber: 0.4, VitaminC: 0, Benefits: "Carbohidrato de fácil digestión, energía rápida"},
	{Name: "frijoles", Calories: 127, Protein: 9.0, Carbs: 23.0, Fat: 0.5, Fiber: 6.4, VitaminC: 2, Benefits: "Alto en proteína vegetal y fibra"},
	{Name: "lentejas", Calories: 116, Protein: 9.0, Carbs: 20.0, Fat: 0.4, Fiber: 7.9, VitaminC: 1, Benefits: "Excelente fuente de proteína vegetal y hierro"},

	// Dairy and eggs
	{Name: "queso", Calories: 402, Protein: 25.0, Carbs: 1.3, Fat: 33.0, Fiber: 0, VitaminC: 0, Benefits: "Rico en calcio y proteína"},
	{Name: "huevo", Calories: 155, Protein: 13.0, Carbs: 1.1, Fat: 11.0, Fiber: 0, VitaminC: 0, Benefits: "Proteína completa con todos los aminoácidos esenciales"},

	// Fruits and fats
	{Name: "limón", Calories: 29, Protein: 1.1, Carbs: 9.3, Fat: 0.3, Fiber: 2.8, VitaminC: 53, Benefits: "Alto en vitamina C y antioxidantes"},
	{Name: "aceite", Calories: 884, Protein: 0, Carbs: 0, Fat: 100.0, Fiber: 0, VitaminC: 0, Benefits: "Fuente de grasas, usar con moderación"},
}

// DefaultTable returns the shipped Spanish nutrition table
func DefaultTable() *Table {
	return NewTable(defaultEntries)
}
