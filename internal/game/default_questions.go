// internal/game/default_questions.go
package game

import (
	"github.com/google/uuid"
	"github.com/quizloop/quizloop/internal/models"
)

// q is a constructor shorthand for the built-in bank below.
func q(text string, options [4]string, correct int, d models.Difficulty, bonus bool) *models.Question {
	id, _ := uuid.NewRandom()
	return &models.Question{
		ID:           id,
		Text:         text,
		Options:      options[:],
		CorrectIndex: correct,
		Difficulty:   d,
		IsBonus:      bonus,
	}
}

// DefaultQuestions returns the built-in general-knowledge bank used when no
// external question source is configured. Regular draws prefer the easy and
// medium items; the bonus sub-pool is drawn hardest first.
func DefaultQuestions() []*models.Question {
	easy := models.DifficultyEasy
	med := models.DifficultyMedium
	hard := models.DifficultyHard
	return []*models.Question{
		q("What is the capital of France?", [4]string{"Lyon", "Paris", "Marseille", "Nice"}, 1, easy, false),
		q("How many continents are there?", [4]string{"Five", "Six", "Seven", "Eight"}, 2, easy, false),
		q("What color do you get by mixing blue and yellow?", [4]string{"Purple", "Green", "Orange", "Brown"}, 1, easy, false),
		q("Which planet is known as the Red Planet?", [4]string{"Venus", "Jupiter", "Mars", "Saturn"}, 2, easy, false),
		q("How many sides does a hexagon have?", [4]string{"Five", "Six", "Seven", "Eight"}, 1, easy, false),
		q("What is the largest ocean on Earth?", [4]string{"Atlantic", "Indian", "Arctic", "Pacific"}, 3, easy, false),
		q("Which animal is the tallest living land animal?", [4]string{"Elephant", "Giraffe", "Ostrich", "Moose"}, 1, easy, false),
		q("What gas do plants absorb from the atmosphere?", [4]string{"Oxygen", "Nitrogen", "Carbon dioxide", "Hydrogen"}, 2, easy, false),
		q("How many minutes are in a full day?", [4]string{"1440", "1240", "1540", "1640"}, 0, easy, false),
		q("Which instrument has 88 keys?", [4]string{"Organ", "Accordion", "Piano", "Harpsichord"}, 2, easy, false),
		q("Which country is home to the kangaroo?", [4]string{"South Africa", "Brazil", "Australia", "India"}, 2, easy, false),
		q("What is the chemical symbol for water?", [4]string{"WO", "H2O", "O2", "HO2"}, 1, easy, false),
		q("In which sport is the term 'checkmate' used?", [4]string{"Bridge", "Checkers", "Chess", "Poker"}, 2, easy, false),
		q("Which of these is a primary color?", [4]string{"Green", "Orange", "Red", "Violet"}, 2, easy, false),
		q("Which ocean lies between Africa and Australia?", [4]string{"Pacific", "Atlantic", "Indian", "Southern"}, 2, med, false),
		q("Who painted the Mona Lisa?", [4]string{"Michelangelo", "Leonardo da Vinci", "Raphael", "Donatello"}, 1, med, false),
		q("What is the smallest prime number?", [4]string{"0", "1", "2", "3"}, 2, med, false),
		q("Which element has the atomic number 6?", [4]string{"Oxygen", "Carbon", "Nitrogen", "Boron"}, 1, med, false),
		q("In what year did the Berlin Wall fall?", [4]string{"1987", "1989", "1991", "1993"}, 1, med, false),
		q("Which mountain range separates Europe from Asia?", [4]string{"Alps", "Andes", "Urals", "Himalayas"}, 2, med, false),
		q("What is the longest river in the world by most measures?", [4]string{"Amazon", "Nile", "Yangtze", "Mississippi"}, 1, med, false),
		q("Which language has the most native speakers?", [4]string{"English", "Hindi", "Spanish", "Mandarin Chinese"}, 3, med, false),
		q("What is the currency of Japan?", [4]string{"Won", "Yuan", "Yen", "Ringgit"}, 2, med, false),
		q("Which composer wrote the Ninth Symphony while almost completely deaf?", [4]string{"Mozart", "Beethoven", "Bach", "Brahms"}, 1, med, false),
		q("What is the largest internal organ of the human body?", [4]string{"Heart", "Liver", "Lungs", "Kidney"}, 1, med, false),
		q("Which country has the most time zones, including territories?", [4]string{"Russia", "USA", "France", "China"}, 2, med, false),
		q("Which planet has the most moons discovered so far?", [4]string{"Jupiter", "Saturn", "Uranus", "Neptune"}, 1, med, false),
		q("What does 'HTTP' stand for?", [4]string{"HyperText Transfer Protocol", "High Throughput Transfer Protocol", "HyperText Terminal Process", "Hyperlink Text Transport Protocol"}, 0, med, false),
		q("Which year did the first human land on the Moon?", [4]string{"1967", "1969", "1971", "1973"}, 1, med, false),
		q("What is the hardest natural substance on Earth?", [4]string{"Quartz", "Topaz", "Diamond", "Corundum"}, 2, med, false),
		q("Which scientist proposed the three laws of motion?", [4]string{"Einstein", "Galileo", "Newton", "Kepler"}, 2, med, false),
		q("Which of these numbers is a Fibonacci number?", [4]string{"20", "21", "22", "23"}, 1, hard, false),
		q("What is the rarest naturally occurring blood type?", [4]string{"O negative", "B negative", "AB negative", "A negative"}, 2, hard, false),
		q("Which treaty ended the Thirty Years' War in 1648?", [4]string{"Treaty of Versailles", "Peace of Westphalia", "Treaty of Utrecht", "Congress of Vienna"}, 1, hard, false),
		q("What is the only metal that is liquid at room temperature?", [4]string{"Gallium", "Mercury", "Cesium", "Francium"}, 1, hard, false),
		q("Which country was formerly known as Abyssinia?", [4]string{"Sudan", "Somalia", "Ethiopia", "Eritrea"}, 2, hard, false),
		q("What is the speed of light in a vacuum, to the nearest thousand km/s?", [4]string{"200,000", "250,000", "300,000", "350,000"}, 2, hard, true),
		q("Which mathematician proved Fermat's Last Theorem in 1994?", [4]string{"Andrew Wiles", "Terence Tao", "Grigori Perelman", "John Conway"}, 0, hard, true),
		q("What is the capital of Kazakhstan?", [4]string{"Almaty", "Astana", "Tashkent", "Bishkek"}, 1, hard, true),
		q("Which deep-sea trench is the deepest known point of the ocean?", [4]string{"Tonga Trench", "Java Trench", "Mariana Trench", "Puerto Rico Trench"}, 2, hard, true),
		q("Which painter cut off part of his own ear?", [4]string{"Paul Gauguin", "Vincent van Gogh", "Claude Monet", "Edvard Munch"}, 1, med, true),
		q("Which chemical element is named after the Greek word for 'sun'?", [4]string{"Hydrogen", "Helium", "Selenium", "Titanium"}, 1, med, true),
		q("How many bones are in the adult human body?", [4]string{"196", "206", "216", "226"}, 1, med, true),
		q("Which empire built Machu Picchu?", [4]string{"Aztec", "Maya", "Inca", "Olmec"}, 2, med, true),
	}
}
