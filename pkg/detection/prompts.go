package detection

import "fmt"

// PrimaryPrompt asks for precise boxes around every visible ingredient of a
// width x height image, one "[ymin, xmin, ymax, xmax, nombre]" line each
func PrimaryPrompt(width, height int) string {
	return fmt.Sprintf(`Eres un experto en análisis de imágenes de comida. Analiza esta imagen de %dx%d píxeles y detecta CADA ingrediente alimentario visible con MÁXIMA PRECISIÓN.

INSTRUCCIONES CRÍTICAS:
1. Identifica ingredientes individuales específicos: vegetales, carnes, granos, lácteos, condimentos, frutas, hierbas
2. Dibuja bounding boxes MUY PRECISOS alrededor de CADA ingrediente visible
3. USA COORDENADAS NORMALIZADAS de 0 a 1000 donde:
   - 0,0 = esquina superior izquierda
   - 1000,1000 = esquina inferior derecha
4. NO detectes objetos como platos, mesas, cubiertos, vasos
5. SÉ MUY PRECISO con las coordenadas para que coincidan exactamente con cada ingrediente

FORMATO EXACTO REQUERIDO:
[ymin, xmin, ymax, xmax, nombre_ingrediente]

EJEMPLOS DE DETECCIÓN PRECISA:
[120, 200, 280, 350, tomate]
[300, 150, 450, 320, lechuga]
[180, 400, 320, 580, pollo]
[50, 100, 180, 250, cebolla]
[400, 200, 500, 400, arroz]

REGLAS IMPORTANTES:
- Detecta ingredientes aunque sean pequeños
- Sé específico con los nombres (no "verdura", sino "tomate", "lechuga", etc.)
- Las coordenadas deben ser EXACTAS para la segmentación precisa
- Busca ingredientes en toda la imagen
- Responde SOLO con las detecciones en el formato especificado
- Detecta MÍNIMO 4-6 ingredientes si hay comida visible
- Ajusta las coordenadas para que cubran completamente cada ingrediente

Analiza la imagen ahora con MÁXIMA PRECISIÓN:`, width, height)
}

// AlternativePrompt lists ingredient families to coax more detections out
// of the model when the primary prompt found too few
const AlternativePrompt = `TAREA: Detectar ingredientes de comida con bounding boxes

BUSCA ESTOS TIPOS DE INGREDIENTES:
Vegetales: tomate, lechuga, cebolla, zanahoria, apio, pepino, pimiento
Carnes: pollo, res, cerdo, pescado, camarón, jamón
Granos: arroz, frijoles, lentejas, quinoa, pasta
Lácteos: queso, crema, yogurt
Hierbas: cilantro, perejil, albahaca
Frutas: aguacate, limón, tomate
Condimentos: salsa, aceite, vinagre

FORMATO OBLIGATORIO:
[ymin, xmin, ymax, xmax, nombre_exacto]

EJEMPLO:
[100, 150, 200, 300, tomate]
[250, 200, 350, 400, lechuga]
[300, 100, 450, 250, pollo]

REGLAS:
- Coordenadas 0-1000
- NO detectes platos/utensilios
- SÉ ESPECÍFICO con nombres
- Detecta MÍNIMO 4 ingredientes
- Solo texto de respuesta`
